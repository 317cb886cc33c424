// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/samber/oops"
)

// Kind classifies an error by how callers are expected to react to it.
type Kind string

// Error kinds.
const (
	KindValidation      Kind = "validation"
	KindPrecondition    Kind = "precondition"
	KindDefinition      Kind = "definition"
	KindExternalBackend Kind = "external_backend"
	KindInternal        Kind = "internal"
)

// Validation error codes.
const (
	CodeInvalidAmount = "INVALID_AMOUNT"
	CodeInvalidLevel  = "INVALID_LEVEL"
	CodeInvalidXP     = "INVALID_XP"
	CodeInvalidInput  = "INVALID_INPUT"
)

// Precondition error codes.
const (
	CodeNotActive           = "CORE_NOT_ACTIVE"
	CodeAlreadyActive       = "CORE_ALREADY_ACTIVE"
	CodeOnCooldown          = "ON_COOLDOWN"
	CodeInsufficientEnergy  = "INSUFFICIENT_ENERGY"
	CodeEnergyFull          = "ENERGY_FULL"
	CodeInsufficientFunds   = "INSUFFICIENT_FUNDS"
	CodeMissingItems        = "MISSING_ITEMS"
	CodeNoSeed              = "NO_SEED"
	CodeAlreadyHasSeed      = "ALREADY_HAS_SEED"
	CodeNothingHeld         = "NOTHING_HELD"
	CodeItemNotAccepted     = "ITEM_NOT_ACCEPTED"
	CodeLocationProtected   = "LOCATION_PROTECTED"
	CodeLocationObstructed  = "LOCATION_OBSTRUCTED"
	CodeMaxLevel            = "MAX_LEVEL"
	CodeNotMaxLevel         = "NOT_MAX_LEVEL"
	CodeNoMutationsLeft     = "NO_MUTATIONS_LEFT"
	CodeNoBackup            = "NO_BACKUP"
	CodeRestorationDisabled = "RESTORATION_DISABLED"
	CodeArchetypeChosen     = "ARCHETYPE_ALREADY_CHOSEN"
	CodeNoArchetype         = "NO_ARCHETYPE"
	CodeSkillNotInArchetype = "SKILL_NOT_IN_ARCHETYPE"
	CodeSkillLocked         = "SKILL_LOCKED"
	CodeHookRejected        = "HOOK_REJECTED"
	CodeSelfDamage          = "SELF_DAMAGE"
)

// Definition error codes.
const (
	CodeUnknownArchetype   = "UNKNOWN_ARCHETYPE"
	CodeUnknownSkill       = "UNKNOWN_SKILL"
	CodeUnknownMutation    = "UNKNOWN_MUTATION"
	CodeDefinitionsInvalid = "DEFINITIONS_INVALID"
)

// External backend error codes.
const (
	CodeProtectionFailed = "PROTECTION_BACKEND_FAILED"
	CodeEconomyFailed    = "ECONOMY_FAILED"
	CodeInventoryFailed  = "INVENTORY_FAILED"
	CodeWorldFailed      = "WORLD_FAILED"
	CodeStoreFailed      = "STORE_FAILED"
)

var codeKinds = map[string]Kind{
	CodeInvalidAmount: KindValidation,
	CodeInvalidLevel:  KindValidation,
	CodeInvalidXP:     KindValidation,
	CodeInvalidInput:  KindValidation,

	CodeNotActive:           KindPrecondition,
	CodeAlreadyActive:       KindPrecondition,
	CodeOnCooldown:          KindPrecondition,
	CodeInsufficientEnergy:  KindPrecondition,
	CodeEnergyFull:          KindPrecondition,
	CodeInsufficientFunds:   KindPrecondition,
	CodeMissingItems:        KindPrecondition,
	CodeNoSeed:              KindPrecondition,
	CodeAlreadyHasSeed:      KindPrecondition,
	CodeNothingHeld:         KindPrecondition,
	CodeItemNotAccepted:     KindPrecondition,
	CodeLocationProtected:   KindPrecondition,
	CodeLocationObstructed:  KindPrecondition,
	CodeMaxLevel:            KindPrecondition,
	CodeNotMaxLevel:         KindPrecondition,
	CodeNoMutationsLeft:     KindPrecondition,
	CodeNoBackup:            KindPrecondition,
	CodeRestorationDisabled: KindPrecondition,
	CodeArchetypeChosen:     KindPrecondition,
	CodeNoArchetype:         KindPrecondition,
	CodeSkillNotInArchetype: KindPrecondition,
	CodeSkillLocked:         KindPrecondition,
	CodeHookRejected:        KindPrecondition,
	CodeSelfDamage:          KindPrecondition,

	CodeUnknownArchetype:   KindDefinition,
	CodeUnknownSkill:       KindDefinition,
	CodeUnknownMutation:    KindDefinition,
	CodeDefinitionsInvalid: KindDefinition,

	CodeProtectionFailed: KindExternalBackend,
	CodeEconomyFailed:    KindExternalBackend,
	CodeInventoryFailed:  KindExternalBackend,
	CodeWorldFailed:      KindExternalBackend,
	CodeStoreFailed:      KindExternalBackend,
}

// KindOf returns the kind of err based on its oops code.
// Errors without a known code are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return KindValidation
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return KindInternal
	}
	code, _ := oopsErr.Code().(string)
	if kind, ok := codeKinds[code]; ok {
		return kind
	}
	return KindInternal
}

// CodeOf returns the oops code carried by err, or "" when there is none.
func CodeOf(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, _ := oopsErr.Code().(string)
	return code
}

// ValidationError represents invalid caller input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ErrValidation wraps a field-level validation failure with code.
func ErrValidation(code, field, message string) error {
	return oops.Code(code).
		With("field", field).
		Wrap(&ValidationError{Field: field, Message: message})
}

// ErrPrecondition creates a precondition failure for the actor.
func ErrPrecondition(code string, actor ActorID, format string, args ...any) error {
	return oops.Code(code).
		With("actor_id", actor.String()).
		Errorf(format, args...)
}

// ErrCooldown creates an ON_COOLDOWN error carrying the remaining duration.
func ErrCooldown(actor ActorID, key string, remaining time.Duration) error {
	return oops.Code(CodeOnCooldown).
		With("actor_id", actor.String()).
		With("cooldown_key", key).
		With("remaining", remaining).
		Errorf("%s is on cooldown for %s", key, remaining.Round(100*time.Millisecond))
}

// ErrUnknownDefinition creates a definition error for an unknown id.
func ErrUnknownDefinition(code, id string) error {
	return oops.Code(code).
		With("id", id).
		Errorf("unknown definition %q", id)
}

// ErrBackend wraps a failure from an external collaborator.
func ErrBackend(code, operation string, cause error) error {
	return oops.Code(code).
		With("operation", operation).
		Wrap(cause)
}
