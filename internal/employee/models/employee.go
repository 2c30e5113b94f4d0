// Package models defines the core domain models for the Employee entity.
package models

// Employee defines the domain model for an employee record.
type Employee struct {
	// ID is assigned by storage on insert and never changes afterwards.
	ID int64 `json:"id"`
	// FirstName is the employee's given name.
	FirstName string `json:"nombre" validate:"max=60"`
	// LastName is the employee's family name.
	LastName string `json:"apellido" validate:"max=60"`
	// Email is unique across all employees.
	Email string `json:"email" validate:"max=60"`
}

// EmployeeUpdate carries the mutable fields of an Employee.
// All three fields are overwritten on update.
type EmployeeUpdate struct {
	ID        int64  `json:"-"`
	FirstName string `json:"nombre"`
	LastName  string `json:"apellido"`
	Email     string `json:"email"`
}

// Apply overwrites the mutable fields of e with the values in u.
func (u *EmployeeUpdate) Apply(e *Employee) {
	e.FirstName = u.FirstName
	e.LastName = u.LastName
	e.Email = u.Email
}
