package models

import "time"

type College struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"not null;uniqueIndex;size:200"`
	Code string `json:"code" gorm:"not null;uniqueIndex;size:20"`
	City *string `json:"city" gorm:"size:100"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Departments []Department `json:"departments,omitempty" gorm:"foreignKey:CollegeID"`
}

type Department struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	Name      string `json:"name" gorm:"not null;size:200"`
	CollegeID uint   `json:"college_id" gorm:"not null;index;uniqueIndex:idx_dept_college_name"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	College College `json:"college,omitempty" gorm:"foreignKey:CollegeID"`
}

func (College) TableName() string {
	return "colleges"
}

func (Department) TableName() string {
	return "departments"
}
