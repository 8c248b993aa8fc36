package entity

type Movie struct {
	BaseSimple
	Name string `db:"name"`
}
