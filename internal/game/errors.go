package game

import (
	"errors"

	"github.com/samdwyer/skirmish/internal/entity"
)

var (
	// ErrNoPlayers is returned when the turn cannot advance because nobody is registered.
	ErrNoPlayers = errors.New("no players registered")
	// ErrUnknownUnit is returned when a unit id does not belong to the acting player.
	ErrUnknownUnit = errors.New("unknown unit")
	// ErrUnknownPlayer is returned for player ids that are not registered.
	ErrUnknownPlayer = errors.New("unknown player")
	// ErrNotYourTurn is returned when a player other than the active one acts.
	ErrNotYourTurn = errors.New("not your turn")
	// ErrActionUnavailable is returned when a unit's status, range or terrain forbids an action.
	ErrActionUnavailable = errors.New("action unavailable")
	// ErrInsufficientResources is returned when a recruit costs more than the stockpile holds.
	ErrInsufficientResources = entity.ErrInsufficientResources
	// ErrInvalidSpawn is returned when recruiting away from the player's spawn points.
	ErrInvalidSpawn = errors.New("not a spawn point")
	// ErrCellOccupied is returned when a living unit already stands on the cell.
	ErrCellOccupied = errors.New("cell occupied")
	// ErrBadTarget is returned when an action's target cannot be bound to a unit.
	ErrBadTarget = errors.New("bad target")
	// ErrGameOver is returned for actions attempted after the battle ended.
	ErrGameOver = errors.New("game is over")
)
