package domain

import "time"

// Purpose identifica el flujo al que pertenece un token. Cada proposito
// tiene su propio espacio de almacenamiento, TTL y limite de solicitudes.
type Purpose string

const (
	PurposeEmailVerification  Purpose = "email_verification"
	PurposePasswordReset      Purpose = "password_reset"
	PurposeDoctorRegistration Purpose = "doctor_registration"
)

// Purposes lista todos los propositos conocidos.
var Purposes = []Purpose{
	PurposeEmailVerification,
	PurposePasswordReset,
	PurposeDoctorRegistration,
}

func (p Purpose) Valid() bool {
	switch p {
	case PurposeEmailVerification, PurposePasswordReset, PurposeDoctorRegistration:
		return true
	}
	return false
}

// Flow devuelve el nombre del flujo usado como clave de rate limiting.
func (p Purpose) Flow() string {
	switch p {
	case PurposeEmailVerification:
		return "verification"
	case PurposePasswordReset:
		return "reset"
	case PurposeDoctorRegistration:
		return "doctor-approval"
	}
	return string(p)
}

// Token es un codigo emitido para un email. Mientras no se consuma ni se
// reemplace sigue pendiente, aunque haya expirado.
type Token struct {
	ID      string    `json:"id"`
	Purpose Purpose   `json:"purpose"`
	Email   string    `json:"email"`
	Token   string    `json:"-"`
	Expires time.Time `json:"expires"`
}

func (t Token) Expired(now time.Time) bool {
	return now.After(t.Expires)
}
