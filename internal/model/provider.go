package model

type TransportProvider struct {
	ID      int64  `json:"id" db:"id" mapstructure:"id"`
	Name    string `json:"name" db:"name" mapstructure:"name"`
	Contact string `json:"contact,omitempty" db:"contact" mapstructure:"contact"`
}
