package access

import (
	"github.com/goliatone/go-persistence-bun"
)

// RegisterModels registers the package models with the persistence layer.
// Call before persistence.New so relations resolve during migration.
func RegisterModels() {
	persistence.RegisterModel((*User)(nil))
	persistence.RegisterModel((*AccessGrant)(nil))
}
