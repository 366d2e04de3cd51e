package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// TimeOfDay is minutes from midnight. Schedule windows are half-open
// [start, end); a window with start > end wraps past midnight.
type TimeOfDay int

var timeOfDayRe = regexp.MustCompile(`^([01]?\d|2[0-3]):([0-5]\d)$`)

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	m := timeOfDayRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, Validationf("invalid time of day: %q", s)
	}
	var h, min int
	fmt.Sscanf(m[1], "%d", &h)
	fmt.Sscanf(m[2], "%d", &min)
	return TimeOfDay(h*60 + min), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// User is a staff account operating the gate desk. Users are never hard
// deleted, only disabled.
type User struct {
	ID            int64     `json:"id"`
	Username      string    `json:"username"`
	PasswordHash  string    `json:"-"`
	Disabled      bool      `json:"disabled"`
	ScheduleStart TimeOfDay `json:"schedule_start"`
	ScheduleEnd   TimeOfDay `json:"schedule_end"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// WithinSchedule reports whether the user's work window covers t (local
// wall-clock time).
func (u *User) WithinSchedule(t time.Time) bool {
	now := TimeOfDay(t.Hour()*60 + t.Minute())
	if u.ScheduleStart == u.ScheduleEnd {
		return true // no restriction configured
	}
	if u.ScheduleStart < u.ScheduleEnd {
		return now >= u.ScheduleStart && now < u.ScheduleEnd
	}
	// Overnight window, e.g. 22:00-06:00.
	return now >= u.ScheduleStart || now < u.ScheduleEnd
}

type RegisterUserRequest struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	ScheduleStart string `json:"schedule_start,omitempty"`
	ScheduleEnd   string `json:"schedule_end,omitempty"`
}

func (r *RegisterUserRequest) Normalize() {
	r.Username = strings.ToLower(strings.TrimSpace(r.Username))
}

func (r *RegisterUserRequest) Validate() error {
	if r.Username == "" {
		return Validationf("username is required")
	}
	if len(r.Username) < 3 {
		return Validationf("username must be at least 3 characters")
	}
	if r.Password == "" {
		return Validationf("password is required")
	}
	if len(r.Password) < 8 {
		return Validationf("password must be at least 8 characters")
	}
	return nil
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Building string `json:"building"`
}

func (r *LoginRequest) Normalize() {
	r.Username = strings.ToLower(strings.TrimSpace(r.Username))
	r.Building = strings.TrimSpace(r.Building)
}

func (r *LoginRequest) Validate() error {
	if r.Username == "" {
		return Validationf("username is required")
	}
	if r.Password == "" {
		return Validationf("password is required")
	}
	if r.Building == "" {
		return Validationf("building is required")
	}
	return nil
}

type UpdateScheduleRequest struct {
	ScheduleStart string `json:"schedule_start"`
	ScheduleEnd   string `json:"schedule_end"`
}

// UserInfo is the user shape exposed over HTTP, without the password hash.
type UserInfo struct {
	ID            int64  `json:"id"`
	Username      string `json:"username"`
	Disabled      bool   `json:"disabled"`
	ScheduleStart string `json:"schedule_start"`
	ScheduleEnd   string `json:"schedule_end"`
}

func (u *User) ToUserInfo() *UserInfo {
	return &UserInfo{
		ID:            u.ID,
		Username:      u.Username,
		Disabled:      u.Disabled,
		ScheduleStart: u.ScheduleStart.String(),
		ScheduleEnd:   u.ScheduleEnd.String(),
	}
}
