package models

type Customer struct {
	Base
	Name    string `json:"name" gorm:"not null"`
	Email   string `json:"email" gorm:"index"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}
