package models

import (
	"time"

	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleOrganizer Role = "organizer"
	RoleUser      Role = "user"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleOrganizer, RoleUser:
		return true
	}
	return false
}

const (
	RegistrationRegistered = "registered"
	RegistrationCancelled  = "cancelled"

	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentFailed  = "failed"

	// Payment rows use their own vocabulary.
	PaymentCompleted = "completed"
)

type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Email     string    `gorm:"not null;uniqueIndex" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	Role      Role      `gorm:"not null;default:'user'" json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Event struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `gorm:"not null" json:"description"`
	Date        time.Time `gorm:"not null;index" json:"date"`
	Time        string    `gorm:"not null" json:"time"`
	Location    string    `gorm:"not null" json:"location"`
	Capacity    int       `gorm:"not null" json:"capacity"`
	Price       float64   `gorm:"not null;default:0" json:"price"`
	CategoryID  uint      `gorm:"not null" json:"categoryId"`
	OrganizerID uint      `gorm:"not null;index" json:"organizerId"`
	// SeatsBooked is the admission counter; only conditional increments touch it.
	SeatsBooked int       `gorm:"not null;default:0" json:"seatsBooked"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// Relationships
	Category  *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Organizer *User     `gorm:"foreignKey:OrganizerID" json:"organizer,omitempty"`
}

type AttendeeDetails struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type Registration struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	UserID          uint            `gorm:"not null;uniqueIndex:idx_registration_user_event" json:"userId"`
	EventID         uint            `gorm:"not null;uniqueIndex:idx_registration_user_event;index" json:"eventId"`
	Status          string          `gorm:"not null;default:'registered'" json:"status"`
	PaymentStatus   string          `gorm:"not null;default:'pending'" json:"paymentStatus"`
	Amount          float64         `gorm:"not null;default:0" json:"amount"`
	Seats           int             `gorm:"not null;default:1" json:"seats"`
	AttendeeDetails AttendeeDetails `gorm:"embedded;embeddedPrefix:attendee_" json:"attendeeDetails"`
	RegisteredAt    time.Time       `gorm:"not null" json:"registeredAt"`

	// Relationships
	User  *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Event *Event `gorm:"foreignKey:EventID" json:"event,omitempty"`
}

// SeatCount treats a missing or zero seat value as one seat.
func (r Registration) SeatCount() int {
	if r.Seats <= 0 {
		return 1
	}
	return r.Seats
}

type Payment struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	RegistrationID uint      `gorm:"not null;index" json:"registrationId"`
	Amount         float64   `gorm:"not null" json:"amount"`
	PaymentMethod  string    `gorm:"not null" json:"paymentMethod"`
	PaymentStatus  string    `gorm:"not null;default:'pending'" json:"paymentStatus"`
	Reference      string    `json:"reference"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`

	Registration *Registration `gorm:"foreignKey:RegistrationID" json:"registration,omitempty"`
}

type Menu struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"not null" json:"name"`
	Route        string    `gorm:"not null" json:"route"`
	Icon         string    `gorm:"not null;default:'menu'" json:"icon"`
	RolesAllowed []Role    `gorm:"type:text;serializer:json" json:"rolesAllowed"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (m Menu) Allows(role Role) bool {
	for _, r := range m.RolesAllowed {
		if r == role {
			return true
		}
	}
	return false
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Category{},
		&Event{},
		&Registration{},
		&Payment{},
		&Menu{},
	)
}
