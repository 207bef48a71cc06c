package domain

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(nil))
	assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
	assert.Equal(t, KindValidation, KindOf(NewValidationError("price", "must be > 0")))
	assert.Equal(t, KindNotFound, KindOf(NewNotFoundError("product", 7)))
	assert.Equal(t, KindInsufficientStock, KindOf(&InsufficientStockError{ProductID: 1, Requested: 2}))
	assert.Equal(t, KindDuplicate, KindOf(&DuplicateError{Entity: "user", Key: "admin"}))
	assert.Equal(t, KindIO, KindOf(WrapIO("insert product", errors.New("disk full"))))
}

func TestKindOfWrapped(t *testing.T) {
	err := errors.Wrap(NewNotFoundError("product", 3), "update")
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, "not_found", KindOf(err).String())
}

func TestWrapIOKeepsDomainKind(t *testing.T) {
	ve := NewValidationError("name", "empty")
	assert.Same(t, ve, WrapIO("add", ve))
	assert.Nil(t, WrapIO("add", nil))
}

func TestInsufficientStockMessage(t *testing.T) {
	e := &InsufficientStockError{ProductID: 1, Requested: 3, Available: 1}
	assert.Contains(t, e.Error(), "requested 3, available 1")
	e = &InsufficientStockError{ProductID: 9, Missing: true}
	assert.Contains(t, e.Error(), "does not exist")
}

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole("admin"))
	assert.True(t, ValidRole("staff"))
	assert.False(t, ValidRole("root"))
}
