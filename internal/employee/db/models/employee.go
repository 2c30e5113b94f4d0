// Package models contains the storage records for the application,
// configured to work using GORM as the ORM.
package models

// TableName is the relational table holding employee rows.
const TableName = "empleados"

// Employee represents an employee row in the database.
// Column names and sizes mirror migrations/00001_create_empleados.sql.
type Employee struct {
	ID        int64  `gorm:"column:id;primaryKey;autoIncrement"`
	FirstName string `gorm:"column:nombre;size:60;not null"`
	LastName  string `gorm:"column:apellido;size:60;not null"`
	Email     string `gorm:"column:email;size:60;not null;uniqueIndex:idx_empleados_email"`
}

// TableName overrides the pluralised default.
func (Employee) TableName() string {
	return TableName
}
