package student

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/ktx/core"
)

type Student struct {
	Name  string `json:"name"`
	MSSV  string `json:"mssv"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
	Room  string `json:"room,omitempty"` // room ID; blank until assigned
}

func (s Student) HasRoom() bool { return s.Room != "" }

// NewStudent contains the information submitted by the registration form.
type NewStudent struct {
	Name  string `json:"name" form:"name" validate:"required,notblank,max=120"`
	MSSV  string `json:"mssv" form:"mssv" validate:"required,mssv,max=32"`
	Email string `json:"email" form:"email" validate:"required,email"`
	Phone string `json:"phone" form:"phone" validate:"omitempty,phone"`
	Room  string `json:"room" form:"room" validate:"omitempty,max=32"`
}

// Validate cleans the candidate and checks required fields.
// It is the only admission check: records are not re-validated on read.
func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.MSSV = core.CleanString(ns.MSSV)
	ns.Email = core.CleanString(ns.Email)
	ns.Phone = core.CleanString(ns.Phone)
	ns.Room = core.CleanString(ns.Room)
	return validate.Struct(ns)
}

func (ns NewStudent) student() Student {
	return Student{
		Name:  ns.Name,
		MSSV:  ns.MSSV,
		Email: ns.Email,
		Phone: ns.Phone,
		Room:  ns.Room,
	}
}

// FromStudent returns the form values of an existing record, used to pre-fill the edit form.
func FromStudent(s Student) NewStudent {
	return NewStudent{
		Name:  s.Name,
		MSSV:  s.MSSV,
		Email: s.Email,
		Phone: s.Phone,
		Room:  s.Room,
	}
}
