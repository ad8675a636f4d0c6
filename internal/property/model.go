package property

import "time"

const (
	StatusAvailable = "disponible"
	StatusSold      = "vendido"
	StatusReserved  = "reservado"
)

const (
	KindHouse     = "casa"
	KindApartment = "departamento"
	KindHotel     = "hotel"
)

var ValidStatuses = map[string]bool{
	StatusAvailable: true, StatusSold: true, StatusReserved: true,
}

var ValidKinds = map[string]bool{
	KindHouse: true, KindApartment: true, KindHotel: true,
}

type Property struct {
	ID      uint64 `gorm:"primaryKey" json:"id"`
	OwnerID uint64 `gorm:"index;not null" json:"owner"`

	Code        string `gorm:"uniqueIndex;not null" json:"code"`
	Title       string `gorm:"not null" json:"title"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Kind        string `gorm:"index;not null;default:casa" json:"kind"`

	Availability string  `json:"availability"`
	Price        float64 `gorm:"not null" json:"price"`
	Currency     string  `gorm:"not null;default:USD" json:"currency"`
	Rooms        int     `gorm:"not null;default:1" json:"rooms"`
	Age          int     `gorm:"not null;default:0" json:"age"`
	Bathrooms    int     `gorm:"not null;default:1" json:"bathrooms"`
	Surface      float64 `json:"surface"` // m²

	Status string     `gorm:"index;not null;default:disponible" json:"status"`
	SoldAt *time.Time `gorm:"index" json:"sold_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}
