package deployment

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// IDLength is the number of hex characters kept from the SHA-256 digest.
const IDLength = 16

// ComputeID derives the record identity from its deployment facts.
// Booleans are rendered as True/False so ids match those already assigned
// to the existing dataset.
func ComputeID(f Facts) string {
	sourceHash := ""
	if f.SourceCode != "" {
		sourceHash = shortHash(f.SourceCode)
	}
	parts := []string{
		f.Address,
		f.Block,
		f.StorageProtocol,
		f.StorageAddress,
		boolText(f.Experimental),
		f.SolcVersion,
		boolText(f.Verified),
		sourceHash,
	}
	return shortHash(strings.Join(parts, "|"))
}

// FallbackID is the degraded identity used when facts cannot be extracted.
func FallbackID(address string) string {
	if address == "" {
		address = "unknown"
	}
	return shortHash(address)
}

// ComputeIDFromFields derives the identity from loosely typed stored values
// (graph rows, imported JSON). It never fails: values it cannot interpret
// degrade to FallbackID of the address.
func ComputeIDFromFields(fields map[string]any) string {
	facts, err := FactsFromFields(fields)
	if err != nil {
		addr, _ := fields[FieldAddress.String()].(string)
		return FallbackID(addr)
	}
	return ComputeID(facts)
}

// FactsFromFields extracts Facts from loosely typed values keyed by field name.
// Missing keys yield zero values.
func FactsFromFields(fields map[string]any) (Facts, error) {
	var f Facts
	var err error
	if f.Address, err = scalarString(fields, FieldAddress); err != nil {
		return Facts{}, err
	}
	if f.Block, err = scalarString(fields, FieldBlock); err != nil {
		return Facts{}, err
	}
	if f.StorageProtocol, err = scalarString(fields, FieldStorageProtocol); err != nil {
		return Facts{}, err
	}
	if f.StorageAddress, err = scalarString(fields, FieldStorageAddress); err != nil {
		return Facts{}, err
	}
	if f.SolcVersion, err = scalarString(fields, FieldSolcVersion); err != nil {
		return Facts{}, err
	}
	if f.SourceCode, err = scalarString(fields, FieldSourceCode); err != nil {
		return Facts{}, err
	}
	if f.Experimental, err = boolValue(fields, FieldExperimental); err != nil {
		return Facts{}, err
	}
	if f.Verified, err = boolValue(fields, FieldVerified); err != nil {
		return Facts{}, err
	}
	return f, nil
}

func scalarString(fields map[string]any, name Field) (string, error) {
	v, ok := fields[name.String()]
	if !ok || v == nil {
		return "", nil
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10), nil
		}
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case bool:
		return boolText(t), nil
	default:
		return "", fmt.Errorf("field %s: unsupported type %T", name, v)
	}
}

func boolValue(fields map[string]any, name Field) (bool, error) {
	v, ok := fields[name.String()]
	if !ok || v == nil {
		return false, nil
	}
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		return ParseBool(t), nil
	default:
		return false, fmt.Errorf("field %s: unsupported type %T", name, v)
	}
}

// ParseBool accepts the spellings found in stored data; anything else is false.
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// FormatBool renders a boolean the way it is stored and hashed.
func FormatBool(b bool) string { return boolText(b) }

func boolText(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:IDLength]
}
