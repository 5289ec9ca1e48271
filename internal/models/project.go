package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus uint8

const (
	ProjectStatusInProgress ProjectStatus = 1
	ProjectStatusPaused     ProjectStatus = 2
	ProjectStatusFinished   ProjectStatus = 3
)

// ProjectStatusRecord is the seeded lookup table backing ProjectStatus.
type ProjectStatusRecord struct {
	ID   ProjectStatus `gorm:"primarykey;autoIncrement:false" json:"id"`
	Name string        `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
}

func (ProjectStatusRecord) TableName() string {
	return "project_statuses"
}

// AllProjectStatuses returns every status in id order.
func AllProjectStatuses() []ProjectStatus {
	return []ProjectStatus{ProjectStatusInProgress, ProjectStatusPaused, ProjectStatusFinished}
}

func (s ProjectStatus) String() string {
	switch s {
	case ProjectStatusInProgress:
		return "In progress"
	case ProjectStatusPaused:
		return "Paused"
	case ProjectStatusFinished:
		return "Finished"
	default:
		return fmt.Sprintf("ProjectStatus(%d)", uint8(s))
	}
}

func (s ProjectStatus) Valid() bool {
	return s >= ProjectStatusInProgress && s <= ProjectStatusFinished
}

// ParseProjectStatus accepts the display name or a compact form ("in_progress").
func ParseProjectStatus(v string) (ProjectStatus, error) {
	normalized := strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.ToLower(v))
	switch normalized {
	case "inprogress":
		return ProjectStatusInProgress, nil
	case "paused":
		return ProjectStatusPaused, nil
	case "finished":
		return ProjectStatusFinished, nil
	default:
		return 0, fmt.Errorf("unknown project status %q", v)
	}
}

func (s ProjectStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *ProjectStatus) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("invalid project status: %s", data)
	}
	parsed, err := ParseProjectStatus(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

type Project struct {
	ID          uint64        `gorm:"primarykey" json:"id"`
	Name        string        `gorm:"type:varchar(150);not null" json:"name"`
	Description *string       `gorm:"type:varchar(400)" json:"description"`
	StatusID    ProjectStatus `gorm:"not null;index" json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`

	// Relations
	Status  ProjectStatusRecord `gorm:"foreignKey:StatusID" json:"-"`
	Members []ProjectMember     `gorm:"foreignKey:ProjectID" json:"-"`
	Tasks   []Task              `gorm:"foreignKey:ProjectID" json:"-"`
}
