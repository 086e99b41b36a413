package repository

import (
	"context"
	"time"
)

const (
	TaskStatusPending = "pending"
	TaskStatusDone    = "done"

	DefaultCurrency  = "USD"
	DefaultDataScope = "farm-wide"
	DefaultRole      = "worker"
)

type User struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Name       string    `json:"name"`
	Provider   string    `json:"provider,omitempty"`
	ProviderID string    `json:"provider_id,omitempty"`
	AvatarURL  string    `json:"avatar_url,omitempty"`
	Active     bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Profile struct {
	ID              int64     `json:"id"`
	UserID          *int64    `json:"user_id,omitempty"`
	Name            string    `json:"name"`
	FarmName        string    `json:"farm_name"`
	Location        string    `json:"location,omitempty"`
	Latitude        *float64  `json:"latitude,omitempty"`
	Longitude       *float64  `json:"longitude,omitempty"`
	State           string    `json:"state,omitempty"`
	County          string    `json:"county,omitempty"`
	ZipCode         string    `json:"zip_code,omitempty"`
	Address         string    `json:"address,omitempty"`
	FarmType        string    `json:"farm_type,omitempty"`
	EfficiencyScore *float64  `json:"efficiency_score,omitempty"`
	StrataID        string    `json:"usda_strata_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type Crop struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Variety   string    `json:"variety,omitempty"`
	Acreage   *float64  `json:"acreage,omitempty"`
	Season    string    `json:"season,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Task struct {
	ID           int64      `json:"id"`
	CropID       *int64     `json:"crop_id,omitempty"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	Status       string     `json:"status"`
	AssignedTo   string     `json:"assigned_to,omitempty"`
	ScheduledFor string     `json:"scheduled_for,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (t Task) Done() bool { return t.Status == TaskStatusDone }

type Expense struct {
	ID         int64     `json:"id"`
	CropID     *int64    `json:"crop_id,omitempty"`
	Category   string    `json:"category"`
	Amount     float64   `json:"amount"`
	Currency   string    `json:"currency"`
	IncurredOn string    `json:"incurred_on"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type InventoryItem struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Type           string    `json:"type,omitempty"`
	Unit           string    `json:"unit,omitempty"`
	QuantityOnHand float64   `json:"quantity_on_hand"`
	ReorderPoint   float64   `json:"reorder_point"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Low reports whether the item is at or below its reorder point.
func (i InventoryItem) Low() bool { return i.QuantityOnHand <= i.ReorderPoint }

type InventoryAdjustment struct {
	ID        int64     `json:"id"`
	ItemID    int64     `json:"item_id"`
	Delta     float64   `json:"delta"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Budget struct {
	ID            int64     `json:"id"`
	Month         int       `json:"month"`
	Year          int       `json:"year"`
	Category      string    `json:"category"`
	PlannedAmount float64   `json:"planned_amount"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Document struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Type      string    `json:"type,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	FileURI   string    `json:"file_uri,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type TeamMember struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type Permission struct {
	ID        int64     `json:"id"`
	MemberID  int64     `json:"member_id"`
	Page      string    `json:"page"`
	CanRead   bool      `json:"can_read"`
	CanWrite  bool      `json:"can_write"`
	DataScope string    `json:"data_scope"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Threshold struct {
	ID        int64     `json:"id"`
	CropID    *int64    `json:"crop_id,omitempty"`
	Metric    string    `json:"metric"`
	Operator  string    `json:"operator"`
	Value     float64   `json:"value"`
	Message   string    `json:"message,omitempty"`
	Active    bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type Alert struct {
	ID          int64     `json:"id"`
	ThresholdID *int64    `json:"threshold_id,omitempty"`
	Metric      string    `json:"metric"`
	Observed    float64   `json:"observed"`
	Message     string    `json:"message,omitempty"`
	TriggeredAt time.Time `json:"triggered_at"`
}

type Metric struct {
	ID         int64     `json:"id"`
	CropID     *int64    `json:"crop_id,omitempty"`
	Name       string    `json:"name"`
	Value      float64   `json:"value"`
	Unit       string    `json:"unit,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

type Override struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

type UserRepository interface {
	Create(ctx context.Context, user *User) error
	Get(ctx context.Context, id int64) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByPhone(ctx context.Context, phone string) (*User, error)
	Update(ctx context.Context, user *User) error
}

type ProfileRepository interface {
	Get(ctx context.Context) (*Profile, error)
	Save(ctx context.Context, profile *Profile) error
}

type CropRepository interface {
	List(ctx context.Context) ([]Crop, error)
	Get(ctx context.Context, id int64) (*Crop, error)
	Add(ctx context.Context, crop *Crop) error
	Update(ctx context.Context, crop *Crop) error
	Delete(ctx context.Context, id int64) error
}

type TaskRepository interface {
	List(ctx context.Context) ([]Task, error)
	ListByStatus(ctx context.Context, status string) ([]Task, error)
	Get(ctx context.Context, id int64) (*Task, error)
	Add(ctx context.Context, task *Task) error
	SetDone(ctx context.Context, id int64, done bool) (*Task, error)
	Delete(ctx context.Context, id int64) error
}

type ExpenseRepository interface {
	List(ctx context.Context) ([]Expense, error)
	// ListBetween filters on incurred_on, both ends inclusive. It needs
	// range predicates, which only the SQLite adapter serves.
	ListBetween(ctx context.Context, from, to string) ([]Expense, error)
	Add(ctx context.Context, expense *Expense) error
	Delete(ctx context.Context, id int64) error
}

type InventoryRepository interface {
	List(ctx context.Context) ([]InventoryItem, error)
	Get(ctx context.Context, id int64) (*InventoryItem, error)
	Add(ctx context.Context, item *InventoryItem) error
	Update(ctx context.Context, item *InventoryItem) error
	Adjust(ctx context.Context, id int64, delta float64, reason string) (*InventoryItem, error)
	Adjustments(ctx context.Context, id int64) ([]InventoryAdjustment, error)
	Delete(ctx context.Context, id int64) error
}

type BudgetRepository interface {
	List(ctx context.Context) ([]Budget, error)
	ListForMonth(ctx context.Context, month, year int) ([]Budget, error)
	Upsert(ctx context.Context, budget *Budget) error
	Delete(ctx context.Context, id int64) error
}

type DocumentRepository interface {
	List(ctx context.Context) ([]Document, error)
	Add(ctx context.Context, doc *Document) error
	Delete(ctx context.Context, id int64) error
}

type TeamRepository interface {
	List(ctx context.Context) ([]TeamMember, error)
	Get(ctx context.Context, id int64) (*TeamMember, error)
	Add(ctx context.Context, member *TeamMember) error
	Delete(ctx context.Context, id int64) error
}

type PermissionRepository interface {
	ListByMember(ctx context.Context, memberID int64) ([]Permission, error)
	Get(ctx context.Context, memberID int64, page string) (*Permission, error)
	Set(ctx context.Context, perm *Permission) error
}

type ThresholdRepository interface {
	List(ctx context.Context) ([]Threshold, error)
	ListActiveForMetric(ctx context.Context, metric string) ([]Threshold, error)
	Get(ctx context.Context, id int64) (*Threshold, error)
	Add(ctx context.Context, threshold *Threshold) error
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
}

type AlertRepository interface {
	Record(ctx context.Context, alert *Alert) error
	List(ctx context.Context, limit int) ([]Alert, error)
}

type MetricRepository interface {
	Record(ctx context.Context, metric *Metric) error
	List(ctx context.Context, name string, limit int) ([]Metric, error)
}

type OverrideRepository interface {
	All(ctx context.Context) (map[string]string, error)
	Get(ctx context.Context, key string) (*Override, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
