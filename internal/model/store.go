package model

type Store struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}
