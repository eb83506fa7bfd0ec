package model

import (
	"fmt"
	"strings"
)

const (
	ScopeRoom = "room"
	ScopeTour = "tour"

	resourceKeySeparator = ":"
)

func RoomResource(hotelID, roomID string) string {
	return strings.Join([]string{ScopeRoom, hotelID, roomID}, resourceKeySeparator)
}

func TourResource(tourID string) string {
	return strings.Join([]string{ScopeTour, tourID}, resourceKeySeparator)
}

type ResourceKey struct {
	Scope string
	IDs   []string
}

func ParseResourceKey(key string) (*ResourceKey, error) {
	parts := strings.Split(key, resourceKeySeparator)
	if len(parts) < 2 {
		return nil, fmt.Errorf("resource key %q must have the form <scope>:<id>", key)
	}

	scope, ids := parts[0], parts[1:]
	switch scope {
	case ScopeRoom:
		if len(ids) != 2 {
			return nil, fmt.Errorf("room resource key %q must be room:<hotelId>:<roomId>", key)
		}
	case ScopeTour:
		if len(ids) != 1 {
			return nil, fmt.Errorf("tour resource key %q must be tour:<tourId>", key)
		}
	default:
		return nil, fmt.Errorf("unknown resource scope %q", scope)
	}

	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return nil, fmt.Errorf("resource key %q has an empty id", key)
		}
	}

	return &ResourceKey{Scope: scope, IDs: ids}, nil
}

func (k *ResourceKey) String() string {
	return strings.Join(append([]string{k.Scope}, k.IDs...), resourceKeySeparator)
}
