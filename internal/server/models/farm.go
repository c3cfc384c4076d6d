package models

type Farm struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	RUC       string  `json:"ruc"`
	CityID    string  `json:"city_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
