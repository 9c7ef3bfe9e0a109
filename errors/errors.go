package errors

import "fmt"

var (
	ErrValidation        = fmt.Errorf("invalid payload")
	ErrMessageNotFound   = fmt.Errorf("message not found")
	ErrUserNotFound      = fmt.Errorf("user not found")
	ErrNotAPoll          = fmt.Errorf("message is not a poll")
	ErrOptionOutOfRange  = fmt.Errorf("poll option index out of range")
	ErrUserAlreadyExists = fmt.Errorf("user already exists")
	ErrEmptyWords        = fmt.Errorf("no words have been found")
)
