package job

import "time"

type Job struct {
	ID          int64      `json:"id" db:"id"`
	QueryID     *int64     `json:"queryId,omitempty" db:"query_id"`
	UserID      string     `json:"userId" db:"user_id"`
	Title       string     `json:"title" db:"title"`
	Company     string     `json:"company" db:"company"`
	Link        string     `json:"link" db:"link"`
	Location    *string    `json:"location,omitempty" db:"location"`
	Posted      *time.Time `json:"posted,omitempty" db:"posted"`
	Salary      *string    `json:"salary,omitempty" db:"salary"`
	Description *string    `json:"description,omitempty" db:"description"`
	IsDeleted   bool       `json:"isDeleted" db:"is_deleted"`
	IsApplied   bool       `json:"isApplied" db:"is_applied"`
	ScrapedAt   *time.Time `json:"scrapedAt,omitempty" db:"scraped_at"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
}

// Filters narrows and orders a job listing. SortBy is validated against a
// fixed column set before it reaches SQL.
type Filters struct {
	Search    string
	QueryID   *int64
	SortBy    string // posted | company | title
	SortOrder string // asc | desc
	Limit     int
	Offset    int
}

type ListResponse struct {
	Jobs  []*Job `json:"jobs"`
	Total int    `json:"total"`
}

type DashboardStats struct {
	ActiveQueries  int     `json:"activeQueries"`
	JobsFoundToday int     `json:"jobsFoundToday"`
	TotalJobs      int     `json:"totalJobs"`
	SuccessRate    float64 `json:"successRate"`
}
