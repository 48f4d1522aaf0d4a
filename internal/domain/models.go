package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Enumerations
const (
	RoleAdmin   UserRole = "admin"
	RoleManager UserRole = "manager"
	RoleStaff   UserRole = "staff"

	CatalogService CatalogKind = "service"
	CatalogProduct CatalogKind = "product"

	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentPaid      AppointmentStatus = "paid"
	AppointmentRefunded  AppointmentStatus = "refunded"

	NotificationInfo    NotificationType = "info"
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
)

type UserRole string
type CatalogKind string
type AppointmentStatus string
type NotificationType string

type User struct {
	ID           int64
	SalonID      int64
	Name         string
	Email        string
	Phone        string
	Role         UserRole
	PasswordHash *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

type Settings struct {
	SalonID         int64
	BusinessName    string
	BusinessAddress string
	BusinessPhone   string
	CurrencyCode    string
	FeePercent      decimal.Decimal
	OpeningHour     int
	ClosingHour     int
	SlotMinutes     int
	UpdatedAt       time.Time
}

type Professional struct {
	ID                int64
	SalonID           int64
	Name              string
	Role              string
	Phone             string
	Email             string
	CommissionPercent decimal.Decimal
	Online            bool
	Active            bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
	DeletedAt         *time.Time
}

type Client struct {
	ID        int64
	SalonID   int64
	Name      string
	Phone     string
	Email     string
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

type CatalogItem struct {
	ID              int64
	SalonID         int64
	Kind            CatalogKind
	Name            string
	Category        string
	Price           decimal.Decimal
	DurationMinutes int
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       *time.Time
}

// Advance is an outstanding salary advance ("vale") owed by a professional.
// Once discounted by a finalized closure it is never offered again.
type Advance struct {
	ID             int64
	SalonID        int64
	ProfessionalID int64
	Value          decimal.Decimal
	Note           string
	ClosureID      *int64
	CreatedAt      time.Time
	DeletedAt      *time.Time
}

type Appointment struct {
	ID             int64
	SalonID        int64
	Code           string
	Date           time.Time
	Time           string
	ClientID       *int64
	ClientName     string
	ProfessionalID int64
	Professional   string
	PaymentMethod  string
	Total          decimal.Decimal
	Status         AppointmentStatus
	Items          []AppointmentItem
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time
}

// AppointmentItem carries the money split computed once at sale time:
// net = gross - fee - commission. The reconciliation engine only sums these.
type AppointmentItem struct {
	ID            int64
	AppointmentID int64
	CatalogID     *int64
	Name          string
	Gross         decimal.Decimal
	Fee           decimal.Decimal
	Commission    decimal.Decimal
	Net           decimal.Decimal
	ClosureID     *int64
	CreatedAt     time.Time
}

// ServiceLine is one billable appointment item inside a settlement period,
// as offered by a closure preview. Discarded on every new preview.
type ServiceLine struct {
	AppointmentID int64
	Date          time.Time
	ClientName    *string
	ServiceName   string
	Gross         decimal.Decimal
	Fee           decimal.Decimal
	Commission    decimal.Decimal
	Net           decimal.Decimal
}

type CashClosure struct {
	ID              int64
	SalonID         int64
	ProfessionalID  int64
	Professional    string
	PeriodStart     time.Time
	PeriodEnd       time.Time
	GrossTotal      decimal.Decimal
	FeeTotal        decimal.Decimal
	CommissionTotal decimal.Decimal
	NetTotal        decimal.Decimal
	AdvancesTotal   decimal.Decimal
	PayableTotal    decimal.Decimal
	IdempotencyKey  string
	ClosedBy        string
	ClosedAt        time.Time
}

// ClosureResult is what a successful finalize returns.
type ClosureResult struct {
	ID           int64
	NetTotal     decimal.Decimal
	PayableTotal decimal.Decimal
	ClosedAt     time.Time
}

// SettlementPreview is the read-only result of a closure preview fetch:
// the professional's unsettled service lines in the period plus every
// outstanding advance.
type SettlementPreview struct {
	Lines    []ServiceLine
	Advances []Advance
}

// ClosureFinalization is the one-shot finalize command.
type ClosureFinalization struct {
	SalonID         int64
	ProfessionalID  int64
	PeriodStart     time.Time
	PeriodEnd       time.Time
	AdvanceIDs      []int64
	GrossTotal      decimal.Decimal
	FeeTotal        decimal.Decimal
	CommissionTotal decimal.Decimal
	NetTotal        decimal.Decimal
	AdvancesTotal   decimal.Decimal
	PayableTotal    decimal.Decimal
	IdempotencyKey  string
	ClosedBy        string
}

type Notification struct {
	ID        int64
	SalonID   int64
	Title     string
	Message   string
	Type      NotificationType
	CreatedAt time.Time
	ReadAt    *time.Time
	DeletedAt *time.Time
}
