package dto

type ProjectResponse struct {
	Id   string `json:"id"`
	Name string `json:"name"`
}
