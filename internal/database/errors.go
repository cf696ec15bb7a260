package database

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrDuplicateSession    = errors.New("session id already bound")
	ErrDuplicateToken      = errors.New("room token already taken")
	ErrInvalidRoomKind     = errors.New("invalid room kind")
)

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
