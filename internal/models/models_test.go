package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	user := NewUser("alice", "alice@example.com")

	assert.Zero(t, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.WithinDuration(t, time.Now().UTC(), user.CreatedAt, time.Second)
}

func TestUser_Validate(t *testing.T) {
	tests := []struct {
		name    string
		user    *User
		wantErr string
	}{
		{
			name: "valid user",
			user: NewUser("alice", "alice@example.com"),
		},
		{
			name:    "missing username",
			user:    &User{Email: "alice@example.com"},
			wantErr: "username is required",
		},
		{
			name:    "missing email",
			user:    &User{Username: "alice"},
			wantErr: "email is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.user.Validate()

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProduct_Validate(t *testing.T) {
	tests := []struct {
		name    string
		product *Product
		wantErr string
	}{
		{
			name:    "valid product",
			product: NewProduct("keyboard", 49.99, 10),
		},
		{
			name:    "missing name",
			product: &Product{Price: 1, Stock: 1},
			wantErr: "product name is required",
		},
		{
			name:    "negative price",
			product: &Product{Name: "keyboard", Price: -1},
			wantErr: "price cannot be negative",
		},
		{
			name:    "negative stock",
			product: &Product{Name: "keyboard", Price: 1, Stock: -1},
			wantErr: "stock cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.product.Validate()

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestUser_JSONRoundTrip(t *testing.T) {
	// User values in Redis round-trip through JSON; field values that
	// contain delimiters must survive intact.
	user := NewUser("bob|smith", "bob|smith@example.com")
	user.ID = 42

	data, err := json.Marshal(user)
	require.NoError(t, err)

	var decoded User
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, user.ID, decoded.ID)
	assert.Equal(t, user.Username, decoded.Username)
	assert.Equal(t, user.Email, decoded.Email)
}
