package cashu

import (
	"encoding/json"
	"fmt"
)

// Wire payloads for the mint endpoints the recovery flow touches. Field
// shapes are fixed by the protocol, not by this codebase.

// PostRestoreRequest is the body of POST /v1/restore.
type PostRestoreRequest struct {
	Outputs []BlindedMessage `json:"outputs"`
}

// PostRestoreResponse returns the subset of submitted outputs the mint has
// signed before, index-aligned with their signatures. Outputs[i] belongs to
// Signatures[i]; nothing else about the ordering is guaranteed.
type PostRestoreResponse struct {
	Outputs    []BlindedMessage   `json:"outputs"`
	Signatures []BlindedSignature `json:"signatures"`
}

// UnmarshalJSON accepts the legacy "promises" key older mints still use in
// place of "signatures".
func (r *PostRestoreResponse) UnmarshalJSON(data []byte) error {
	type plain PostRestoreResponse
	aux := struct {
		*plain
		Promises []BlindedSignature `json:"promises"`
	}{plain: (*plain)(r)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(r.Signatures) == 0 && len(aux.Promises) > 0 {
		r.Signatures = aux.Promises
	}
	return nil
}

// PostSignRequest is the body of POST /v1/sign, the issuance endpoint the
// simulator exposes so tests and demos can seed signature history.
type PostSignRequest struct {
	Outputs []BlindedMessage `json:"outputs"`
}

// PostSignResponse carries one signature per submitted output, in request
// order.
type PostSignResponse struct {
	Signatures []BlindedSignature `json:"signatures"`
}

// ProofStateValue is a mint's view of one secret's spend status.
type ProofStateValue string

const (
	ProofStateUnspent ProofStateValue = "UNSPENT"
	ProofStatePending ProofStateValue = "PENDING"
	ProofStateSpent   ProofStateValue = "SPENT"
)

// ProofState is one entry of a checkstate response, keyed by
// Y = hashToCurve(secret) in compressed hex.
type ProofState struct {
	Y       string          `json:"Y"`
	State   ProofStateValue `json:"state"`
	Witness string          `json:"witness,omitempty"`
}

// PostCheckStateRequest is the body of POST /v1/checkstate.
type PostCheckStateRequest struct {
	Ys []string `json:"Ys"`
}

// PostCheckStateResponse lists one state per requested Y, in request order.
type PostCheckStateResponse struct {
	States []ProofState `json:"states"`
}

// KeysetInfo is one entry of GET /v1/keysets. Inactive keysets still
// validate and restore proofs, they just no longer sign new ones.
type KeysetInfo struct {
	ID          string `json:"id"`
	Unit        string `json:"unit"`
	Active      bool   `json:"active"`
	InputFeePPK uint64 `json:"input_fee_ppk,omitempty"`
}

// GetKeysetsResponse is the body of GET /v1/keysets.
type GetKeysetsResponse struct {
	Keysets []KeysetInfo `json:"keysets"`
}

// KeysetKeys is one entry of GET /v1/keys/{id}: the per-amount public keys,
// keyed by the amount in decimal.
type KeysetKeys struct {
	ID   string            `json:"id"`
	Unit string            `json:"unit"`
	Keys map[string]string `json:"keys"`
}

// GetKeysResponse is the body of GET /v1/keys and GET /v1/keys/{id}.
type GetKeysResponse struct {
	Keysets []KeysetKeys `json:"keysets"`
}

// NutSetting is one entry of the info endpoint's NUT support map. The
// concrete shape varies per NUT; this keeps the fields readiness checks
// care about and lets the rest pass through.
type NutSetting struct {
	Supported bool              `json:"supported,omitempty"`
	Disabled  bool              `json:"disabled,omitempty"`
	Methods   []json.RawMessage `json:"methods,omitempty"`
}

// GetInfoResponse is the body of GET /v1/info.
type GetInfoResponse struct {
	Name        string                `json:"name"`
	Pubkey      string                `json:"pubkey,omitempty"`
	Version     string                `json:"version,omitempty"`
	Description string                `json:"description,omitempty"`
	Nuts        map[string]NutSetting `json:"nuts,omitempty"`
}

// NutSupported reports whether the mint advertises support for a NUT,
// e.g. "9" for restore and "13" for deterministic secrets.
func (i *GetInfoResponse) NutSupported(num string) bool {
	setting, ok := i.Nuts[num]
	return ok && setting.Supported && !setting.Disabled
}

// Error is the protocol error body mints reply with on rejections.
type Error struct {
	Detail string `json:"detail"`
	Code   int    `json:"code"`
}

// Error codes from the shared registry, plus a catch-all.
const (
	ErrCodeGeneric              = 10000
	ErrCodeBlindedMessageSigned = 10002
	ErrCodeTokenAlreadySpent    = 11001
	ErrCodeUnitNotSupported     = 11005
	ErrCodeKeysetUnknown        = 12001
	ErrCodeKeysetInactive       = 12002
)

func NewError(code int, detail string) *Error {
	return &Error{Code: code, Detail: detail}
}

func (e *Error) Error() string {
	return fmt.Sprintf("mint error %d: %s", e.Code, e.Detail)
}
