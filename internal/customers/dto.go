package customers

import (
	"time"

	"github.com/google/uuid"

	"github.com/librastore/librashop-backend/pkg/db/models"
)

// CustomerDTO is the customer projection returned to callers.
type CustomerDTO struct {
	ID             uuid.UUID `json:"id"`
	ExternalUserID *string   `json:"external_user_id,omitempty"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	CreatedAt      time.Time `json:"created_at"`
}

func newCustomerDTO(customer *models.Customer) CustomerDTO {
	return CustomerDTO{
		ID:             customer.ID,
		ExternalUserID: customer.ExternalUserID,
		Name:           customer.Name,
		Email:          customer.Email,
		CreatedAt:      customer.CreatedAt,
	}
}
