package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/eems-edu/examiner-service/internal/models"
	"github.com/eems-edu/examiner-service/internal/repositories"
)

type CollegePostgreSQL struct {
	db *gorm.DB
}

func NewCollegePostgreSQL(db *gorm.DB) repositories.CollegeRepository {
	return &CollegePostgreSQL{db: db}
}

func (c *CollegePostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return c.db
}

func (c *CollegePostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.College, error) {
	var college models.College
	if err := c.getDB(tx).WithContext(ctx).First(&college, id).Error; err != nil {
		return nil, err
	}
	return &college, nil
}

func (c *CollegePostgreSQL) List(ctx context.Context, tx *gorm.DB) ([]*models.College, error) {
	var colleges []*models.College
	err := c.getDB(tx).WithContext(ctx).
		Order("name ASC").
		Find(&colleges).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list colleges: %w", err)
	}
	return colleges, nil
}

func (c *CollegePostgreSQL) ListDepartments(ctx context.Context, tx *gorm.DB, collegeID uint) ([]*models.Department, error) {
	var departments []*models.Department
	err := c.getDB(tx).WithContext(ctx).
		Where("college_id = ?", collegeID).
		Order("name ASC").
		Find(&departments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	return departments, nil
}
