package database

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/JonasLeetTheWay/eventreg-go/internal/auth"
	"github.com/JonasLeetTheWay/eventreg-go/internal/models"
)

const seedPassword = "123456"

func SeedData(db *gorm.DB, log *zerolog.Logger) error {
	// Check if data already exists
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		log.Info().Msg("data already seeded, skipping")
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		hashed, err := auth.HashPassword(seedPassword)
		if err != nil {
			return fmt.Errorf("failed to hash seed password: %w", err)
		}

		users := []models.User{
			{Name: "Admin User", Email: "admin@example.com", Password: hashed, Role: models.RoleAdmin},
			{Name: "Organizer User", Email: "organizer@example.com", Password: hashed, Role: models.RoleOrganizer},
			{Name: "Regular User", Email: "user@example.com", Password: hashed, Role: models.RoleUser},
		}
		if err := tx.Create(&users).Error; err != nil {
			return fmt.Errorf("failed to create users: %w", err)
		}
		organizer, regular := users[1], users[2]

		categories := []models.Category{
			{Name: "Technology", Description: "Tech events and conferences"},
			{Name: "Music", Description: "Live music and concerts"},
			{Name: "Sports", Description: "Sports meets and competitions"},
			{Name: "Business", Description: "Business networking and seminars"},
			{Name: "Art", Description: "Art exhibitions and workshops"},
		}
		if err := tx.Create(&categories).Error; err != nil {
			return fmt.Errorf("failed to create categories: %w", err)
		}

		today := time.Now().Truncate(24 * time.Hour)
		events := []models.Event{
			{Title: "Tech Summit", Description: "The biggest tech conference of the year featuring top speakers.", Date: today.AddDate(0, 1, 0), Time: "09:00 AM", Location: "San Francisco, CA", Capacity: 500, Price: 150, CategoryID: categories[0].ID, OrganizerID: organizer.ID},
			{Title: "Indie Rock Fest", Description: "A weekend of amazing indie rock music.", Date: today.AddDate(0, 2, 0), Time: "04:00 PM", Location: "Los Angeles, CA", Capacity: 2000, Price: 45, CategoryID: categories[1].ID, OrganizerID: organizer.ID},
			{Title: "Marathon Challenge", Description: "Annual city marathon for all ages.", Date: today.AddDate(0, 3, 0), Time: "06:00 AM", Location: "New York, NY", Capacity: 1000, Price: 25, CategoryID: categories[2].ID, OrganizerID: organizer.ID},
			{Title: "Startup Networking Night", Description: "Meet investors and fellow entrepreneurs.", Date: today.AddDate(0, -1, 0), Time: "07:00 PM", Location: "Austin, TX", Capacity: 100, CategoryID: categories[3].ID, OrganizerID: organizer.ID},
		}
		if err := tx.Create(&events).Error; err != nil {
			return fmt.Errorf("failed to create events: %w", err)
		}

		now := time.Now()
		registrations := []models.Registration{
			{UserID: regular.ID, EventID: events[0].ID, Status: models.RegistrationRegistered, PaymentStatus: models.PaymentPaid, Amount: events[0].Price, Seats: 1, RegisteredAt: now},
			{UserID: regular.ID, EventID: events[1].ID, Status: models.RegistrationRegistered, PaymentStatus: models.PaymentPaid, Amount: events[1].Price, Seats: 1, RegisteredAt: now},
			{UserID: regular.ID, EventID: events[2].ID, Status: models.RegistrationCancelled, PaymentStatus: models.PaymentPending, Amount: events[2].Price, Seats: 1, RegisteredAt: now},
		}
		for i := range registrations {
			registrations[i].AttendeeDetails = models.AttendeeDetails{Name: regular.Name, Email: regular.Email}
		}
		if err := tx.Create(&registrations).Error; err != nil {
			return fmt.Errorf("failed to create registrations: %w", err)
		}

		// cancelled registrations still hold their seats
		for _, r := range registrations {
			if err := tx.Model(&models.Event{}).Where("id = ?", r.EventID).
				UpdateColumn("seats_booked", gorm.Expr("seats_booked + ?", r.SeatCount())).Error; err != nil {
				return fmt.Errorf("failed to book seats for event %d: %w", r.EventID, err)
			}
		}

		payments := []models.Payment{
			{RegistrationID: registrations[0].ID, Amount: 150, PaymentMethod: "Credit Card", PaymentStatus: models.PaymentCompleted},
			{RegistrationID: registrations[1].ID, Amount: 45, PaymentMethod: "PayPal", PaymentStatus: models.PaymentCompleted},
		}
		if err := tx.Create(&payments).Error; err != nil {
			return fmt.Errorf("failed to create payments: %w", err)
		}

		menus := []models.Menu{
			{Name: "Dashboard", Route: "/dashboard", Icon: "dashboard", RolesAllowed: []models.Role{models.RoleAdmin, models.RoleOrganizer, models.RoleUser}},
			{Name: "Manage Users", Route: "/users", Icon: "people", RolesAllowed: []models.Role{models.RoleAdmin}},
			{Name: "Manage Events", Route: "/events", Icon: "event", RolesAllowed: []models.Role{models.RoleAdmin, models.RoleOrganizer}},
			{Name: "My Events", Route: "/my-events", Icon: "event_available", RolesAllowed: []models.Role{models.RoleOrganizer}},
			{Name: "My Registrations", Route: "/registrations", Icon: "list", RolesAllowed: []models.Role{models.RoleUser}},
		}
		if err := tx.Create(&menus).Error; err != nil {
			return fmt.Errorf("failed to create menus: %w", err)
		}

		log.Info().
			Int("users", len(users)).
			Int("events", len(events)).
			Int("registrations", len(registrations)).
			Msg("sample data seeded")
		return nil
	})
}

// DestroyData removes every row, children first.
func DestroyData(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&models.Payment{}, &models.Registration{}, &models.Event{}, &models.Category{}, &models.User{}, &models.Menu{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return fmt.Errorf("failed to clear %T: %w", model, err)
			}
		}
		return nil
	})
}
