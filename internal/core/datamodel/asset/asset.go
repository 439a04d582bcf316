package asset

import (
	"fmt"
	"time"

	"github.com/frahmantamala/asset-management/internal/core/datamodel/identity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Category struct {
	ID          uuid.UUID `gorm:"primaryKey;size:36" json:"id"`
	Title       string    `gorm:"uniqueIndex;size:50;not null" json:"title"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Category) TableName() string {
	return "categories"
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (c Category) String() string {
	return c.Title
}

type Department struct {
	ID          uuid.UUID `gorm:"primaryKey;size:36" json:"id"`
	Title       string    `gorm:"uniqueIndex;size:50;not null" json:"title"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Department) TableName() string {
	return "departments"
}

func (d *Department) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

func (d Department) String() string {
	return d.Title
}

type Supplier struct {
	ID        uuid.UUID `gorm:"primaryKey;size:36" json:"id"`
	Title     string    `gorm:"uniqueIndex;size:70;not null" json:"title"`
	Email     string    `gorm:"size:254" json:"email"`
	Phone     string    `gorm:"size:20" json:"phone"`
	Address   string    `json:"address"`
	Extra     string    `json:"extra"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Supplier) TableName() string {
	return "suppliers"
}

func (s *Supplier) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (s Supplier) String() string {
	return s.Title
}

type Status struct {
	ID        uuid.UUID `gorm:"primaryKey;size:36" json:"id"`
	Title     string    `gorm:"uniqueIndex;size:30;not null" json:"title"`
	Color     string    `gorm:"size:7" json:"color"`
	Request   bool      `json:"request"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Status) TableName() string {
	return "asset_statuses"
}

func (s *Status) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (s Status) String() string {
	return s.Title
}

type Asset struct {
	ID          uuid.UUID      `gorm:"primaryKey;size:36" json:"id"`
	AssetID     string         `gorm:"uniqueIndex;size:16;not null" json:"asset_id"`
	Title       string         `gorm:"size:150;not null" json:"title"`
	Model       string         `gorm:"size:25" json:"model"`
	Description string         `json:"description"`
	Price       int64          `gorm:"not null" json:"price"`
	StatusID    *uuid.UUID     `gorm:"size:36" json:"status_id"`
	Status      *Status        `gorm:"constraint:OnDelete:SET NULL" json:"status,omitempty"`
	Categories  []Category     `gorm:"many2many:asset_categories;constraint:OnDelete:CASCADE" json:"categories,omitempty"`
	Departments []Department   `gorm:"many2many:asset_departments;constraint:OnDelete:CASCADE" json:"departments,omitempty"`
	SupplierID  *uuid.UUID     `gorm:"size:36" json:"supplier_id"`
	Supplier    *Supplier      `gorm:"constraint:OnDelete:SET NULL" json:"supplier,omitempty"`
	Image       string         `json:"image"`
	Receipt     string         `json:"receipt"`
	IsActive    bool           `json:"is_active"`
	AddedByID   *uuid.UUID     `gorm:"size:36" json:"added_by_id"`
	AddedBy     *identity.User `gorm:"constraint:OnDelete:SET NULL" json:"added_by,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (Asset) TableName() string {
	return "assets"
}

func (a *Asset) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

func (a Asset) String() string {
	return a.Title
}

type RequestStatus int

const (
	RequestPending RequestStatus = iota + 1
	RequestInProgress
	RequestRejected
	RequestApproved
	RequestInUse
	RequestAvailable
	RequestDamage
	RequestReturn
	RequestExpired
	RequestLicenseUpdate
)

var requestStatusLabels = map[RequestStatus]string{
	RequestPending:       "Pending",
	RequestInProgress:    "In Progress",
	RequestRejected:      "Rejected",
	RequestApproved:      "Approved",
	RequestInUse:         "In Use",
	RequestAvailable:     "Available",
	RequestDamage:        "Damage",
	RequestReturn:        "Return",
	RequestExpired:       "Expired",
	RequestLicenseUpdate: "Required License Update",
}

func (s RequestStatus) String() string {
	if label, ok := requestStatusLabels[s]; ok {
		return label
	}
	return "Unknown"
}

func (s RequestStatus) Valid() bool {
	_, ok := requestStatusLabels[s]
	return ok
}

// RequestStatuses lists every status in display order.
func RequestStatuses() []RequestStatus {
	out := make([]RequestStatus, 0, len(requestStatusLabels))
	for s := RequestPending; s <= RequestLicenseUpdate; s++ {
		out = append(out, s)
	}
	return out
}

type Request struct {
	ID           uuid.UUID      `gorm:"primaryKey;size:36" json:"id"`
	AssetID      *uuid.UUID     `gorm:"size:36" json:"asset_id"`
	Asset        *Asset         `gorm:"constraint:OnDelete:SET NULL" json:"asset,omitempty"`
	RequestedID  uuid.UUID      `gorm:"size:36;not null;index" json:"requested_id"`
	Requested    identity.User  `gorm:"constraint:OnDelete:CASCADE" json:"requested"`
	ApprovedByID *uuid.UUID     `gorm:"size:36" json:"approved_by_id"`
	ApprovedBy   *identity.User `gorm:"constraint:OnDelete:SET NULL" json:"approved_by,omitempty"`
	Details      string         `json:"details"`
	Status       RequestStatus  `gorm:"not null" json:"status"`
	RequestDate  *time.Time     `json:"request_date"`
	ReceiveDate  *time.Time     `json:"receive_date"`
	Comment      string         `json:"comment"`
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (Request) TableName() string {
	return "asset_requests"
}

func (r *Request) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Status == 0 {
		r.Status = RequestPending
	}
	return nil
}

func (r Request) String() string {
	if r.Asset != nil {
		return fmt.Sprintf("%s Requested by %s", r.Asset.Title, r.Requested.String())
	}
	return fmt.Sprintf("asset Requested by %s", r.Requested.String())
}

type Issue struct {
	ID           uuid.UUID     `gorm:"primaryKey;size:36" json:"id"`
	AssetID      uuid.UUID     `gorm:"size:36;not null;index" json:"asset_id"`
	Asset        Asset         `gorm:"constraint:OnDelete:CASCADE" json:"asset"`
	StatusID     uuid.UUID     `gorm:"size:36;not null" json:"status_id"`
	Status       Status        `gorm:"constraint:OnDelete:CASCADE" json:"status"`
	RaisedByID   uuid.UUID     `gorm:"size:36;not null;index" json:"raised_by_id"`
	RaisedBy     identity.User `gorm:"constraint:OnDelete:CASCADE" json:"raised_by"`
	Description  string        `json:"description"`
	FixDate      *time.Time    `json:"fix_date"`
	ResolvedDate *time.Time    `json:"resolved_date"`
	Comment      string        `json:"comment"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

func (Issue) TableName() string {
	return "asset_issues"
}

func (i *Issue) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func (i Issue) String() string {
	return fmt.Sprintf("%s Requested by %s", i.Asset.Title, i.RaisedBy.String())
}
