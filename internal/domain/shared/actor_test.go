package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestActor_IsAdmin(t *testing.T) {
	assert.True(t, NewActor(uuid.New(), RoleAdmin).IsAdmin())
	assert.True(t, SystemActor().IsAdmin())
	assert.False(t, NewActor(uuid.New(), RoleMarketer).IsAdmin())
}

func TestActor_Owns(t *testing.T) {
	id := uuid.New()
	actor := NewActor(id, RoleMarketer)

	assert.True(t, actor.Owns(id))
	assert.False(t, actor.Owns(uuid.New()))
	assert.False(t, SystemActor().Owns(uuid.Nil))
}

func TestActor_HasPermission(t *testing.T) {
	actor := NewActor(uuid.New(), RoleFulfiller, "order:fulfill")

	assert.True(t, actor.HasPermission("order:fulfill"))
	assert.False(t, actor.HasPermission("withdrawal:approve"))
}

func TestRole_IsValid(t *testing.T) {
	assert.True(t, RoleMarketer.IsValid())
	assert.False(t, Role("supplier").IsValid())
}

func TestDomainError_IsMatchesByCode(t *testing.T) {
	err := NewInvalidTransitionError("Cannot %s order in %s status", "deliver", "processing")
	wrapped := fmt.Errorf("fulfill: %w", err)

	assert.True(t, errors.Is(wrapped, ErrInvalidTransition))
	assert.False(t, errors.Is(wrapped, ErrForbidden))
	assert.Equal(t, "Cannot deliver order in processing status", err.Error())
}

func TestFilter_OffsetAndLimit(t *testing.T) {
	f := Filter{Page: 3, PageSize: 10}
	assert.Equal(t, 20, f.Offset())
	assert.Equal(t, 10, f.Limit())

	assert.Equal(t, 20, Filter{}.Limit())
	assert.Equal(t, 100, Filter{PageSize: 500}.Limit())
	assert.Equal(t, 0, Filter{Page: 0}.Offset())
}

func TestNewPaginated(t *testing.T) {
	p := NewPaginated([]int{1, 2}, 21, 1, 10)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, int64(21), p.Total)
}
