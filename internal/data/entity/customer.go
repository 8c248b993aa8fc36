package entity

type Customer struct {
	BaseSimple
	Name string `db:"name"`
}
