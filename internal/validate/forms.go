package validate

// LoginForm — username/password login.
type LoginForm struct {
	Username string `validate:"notblank"`
	Password string `validate:"required"`
}

// RegisterForm — account creation. Confirm is checked locally and never sent.
type RegisterForm struct {
	Username string `validate:"notblank,max=150"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
	Confirm  string `validate:"eqfield=Password"`
	Role     string `validate:"oneof=doctor patient"`
}

// DeviceForm — name of a measurement device.
type DeviceForm struct {
	Name string `validate:"notblank,max=100"`
}

// MessageForm — outgoing chat message.
type MessageForm struct {
	Content string `validate:"notblank"`
}
