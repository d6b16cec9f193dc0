package repo

import (
	"encoding/json"
	"time"
)

// Invoice statuses.
const (
	InvoiceIssued    = "issued"
	InvoicePaid      = "paid"
	InvoiceOverdue   = "overdue"
	InvoiceCancelled = "cancelled"
)

// Animal statuses.
const (
	AnimalAvailable = "available_for_adoption"
	AnimalAdopted   = "adopted"
	AnimalLost      = "lost"
	AnimalFound     = "found"
)

// ProcessPending is the status of a freshly submitted process.
const ProcessPending = "pending"

// Resident is an account holder.
type Resident struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
}

// Council is a local government area.
type Council struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	LogoURL    *string `json:"logo_url"`
	Population *int    `json:"population"`
}

// CouncilContact holds the self-service links of a council.
type CouncilContact struct {
	CouncilID          int64   `json:"council_id"`
	QueryValuationURL  *string `json:"query_valuation"`
	ApplyConcessionURL *string `json:"apply_concession"`
	ChangeAddressURL   *string `json:"change_address"`
}

// Property is a rateable parcel owned by a resident, joined with its council.
type Property struct {
	ID                 int64           `json:"id"`
	ResidentID         int64           `json:"resident_id"`
	CouncilID          int64           `json:"council_id"`
	Address            string          `json:"address"`
	PropertyType       *string         `json:"property_type"`
	Zone               *string         `json:"zone"`
	LandSizeSqm        *float64        `json:"land_size_sqm"`
	LandValueCents     *int64          `json:"land_value_cents"`
	PropertyValueCents *int64          `json:"property_value_cents"`
	GPSCoordinates     json.RawMessage `json:"gps_coordinates"`
	ShapeFileData      json.RawMessage `json:"shape_file_data"`
	CouncilName        *string         `json:"council_name"`
	CouncilLogoURL     *string         `json:"council_logo_url"`
}

// Instalment is one step of a rates payment plan.
type Instalment struct {
	Seq         int    `json:"seq"`
	DueDate     string `json:"due_date"`
	AmountCents int64  `json:"amount_cents"`
}

// RatesAccount is the 1:1 billing account of a property.
type RatesAccount struct {
	ID                int64        `json:"id"`
	PropertyID        int64        `json:"property_id"`
	AccountNumber     string       `json:"account_number"`
	BalanceCents      int64        `json:"balance_cents"`
	NextDueDate       *time.Time   `json:"next_due_date"`
	InstalmentPlan    []Instalment `json:"instalment_plan"`
	DirectDebitActive bool         `json:"dd_active"`
	EbillActive       bool         `json:"ebill_active"`
}

// RatesInvoice is a bill issued against a rates account.
type RatesInvoice struct {
	ID            int64      `json:"id"`
	AccountID     int64      `json:"account_id"`
	IssueDate     time.Time  `json:"issue_date"`
	DueDate       *time.Time `json:"due_date"`
	AmountCents   int64      `json:"amount_cents"`
	Status        string     `json:"status"`
	PaymentMethod *string    `json:"payment_method"`
	PDFURL        *string    `json:"pdf_url"`
}

// Valuation is a yearly land/capital valuation.
type Valuation struct {
	ID                int64  `json:"-"`
	PropertyID        int64  `json:"-"`
	Year              int    `json:"year"`
	LandValueCents    *int64 `json:"land_value_cents"`
	CapitalValueCents *int64 `json:"capital_value_cents"`
}

// Concession is a rebate a property may be eligible for.
type Concession struct {
	ID         int64   `json:"-"`
	PropertyID int64   `json:"-"`
	Type       string  `json:"type"`
	Status     string  `json:"status"`
	LinkApply  *string `json:"link_apply"`
}

// PropertyOverlay is a planning overlay (flood, heritage, ...).
type PropertyOverlay struct {
	ID         int64   `json:"-"`
	PropertyID int64   `json:"-"`
	Kind       string  `json:"kind"`
	Source     *string `json:"source"`
	Note       *string `json:"note"`
}

// WasteEntitlement is the bin service attached to a property.
type WasteEntitlement struct {
	ID            int64   `json:"-"`
	PropertyID    int64   `json:"-"`
	BinSizeL      *int    `json:"bin_size_l"`
	ExtraBins     int     `json:"extra_bins"`
	CollectionDay *string `json:"collection_day"`
	ServiceNotes  *string `json:"service_notes"`
}

// WaterConsumption is a meter reading.
type WaterConsumption struct {
	ID          int64     `json:"id"`
	PropertyID  int64     `json:"-"`
	ReadingDate time.Time `json:"reading_date"`
	UsageLitres int64     `json:"usage_litres"`
	AmountCents int64     `json:"amount_cents"`
}

// WasteCollection is a council-wide collection schedule.
type WasteCollection struct {
	ID                  int64      `json:"id"`
	CouncilID           int64      `json:"council_id"`
	CollectionType      string     `json:"collection_type"`
	CollectionDay       *string    `json:"collection_day"`
	CollectionFrequency *string    `json:"collection_frequency"`
	NextCollectionDate  *time.Time `json:"next_collection_date"`
}

// Animal is held by a council shelter.
type Animal struct {
	ID           int64   `json:"id"`
	CouncilID    int64   `json:"council_id"`
	Name         string  `json:"name"`
	Species      string  `json:"species"`
	Breed        *string `json:"breed"`
	Sex          *string `json:"sex"`
	Age          *string `json:"age"`
	Temperament  *string `json:"temperament"`
	MainPhotoURL *string `json:"main_photo_url"`
	Status       string  `json:"status"`
}

// DevelopmentApplication is a planning application, joined with property and council.
type DevelopmentApplication struct {
	ID                 int64      `json:"id"`
	ResidentID         int64      `json:"resident_id"`
	PropertyID         int64      `json:"property_id"`
	CouncilID          int64      `json:"council_id"`
	ApplicationType    string     `json:"application_type"`
	Status             string     `json:"status"`
	SubmissionDate     *time.Time `json:"submission_date"`
	ApprovalDate       *time.Time `json:"approval_date"`
	EstimatedCostCents *int64     `json:"estimated_cost_cents"`
	Description        *string    `json:"description"`
	PropertyAddress    *string    `json:"property_address"`
	CouncilName        *string    `json:"council_name"`
	CouncilLogoURL     *string    `json:"council_logo_url"`
}

// Process is a generic civic-service case submitted by a resident.
type Process struct {
	ID          int64           `json:"id"`
	ResidentID  int64           `json:"resident_id"`
	Category    string          `json:"category"`
	Title       string          `json:"title"`
	Description *string         `json:"description"`
	FormData    json.RawMessage `json:"form_data"`
	Status      string          `json:"status"`
	SubmittedAt time.Time       `json:"submitted_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CreateResidentParams carries a new resident row.
type CreateResidentParams struct {
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// CreateProcessParams carries a new process row.
type CreateProcessParams struct {
	ResidentID  int64
	Category    string
	Title       string
	Description *string
	FormData    json.RawMessage
	Status      string
	At          time.Time
}

// UpdateProcessParams holds a partial update; nil fields are left untouched.
type UpdateProcessParams struct {
	ID          int64
	ResidentID  int64
	Title       *string
	Description *string
	Category    *string
	Status      *string
	FormData    json.RawMessage
	At          time.Time
}
