package bytecode

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode uses canonical mode so equal values always encode to equal
// bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalMethod serializes a Method to CBOR bytes.
func MarshalMethod(m *Method) ([]byte, error) {
	return cborEncMode.Marshal(m)
}

// UnmarshalMethod deserializes a Method from CBOR bytes.
func UnmarshalMethod(data []byte) (*Method, error) {
	var m Method
	if err := cbor.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal method: %w", err)
	}
	return &m, nil
}

// MarshalMethods serializes an ordered method set to CBOR bytes.
func MarshalMethods(ms []*Method) ([]byte, error) {
	return cborEncMode.Marshal(ms)
}

// UnmarshalMethods deserializes an ordered method set from CBOR bytes.
func UnmarshalMethods(data []byte) ([]*Method, error) {
	var ms []*Method
	if err := cbor.Unmarshal(data, &ms); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal methods: %w", err)
	}
	return ms, nil
}

// MarshalMembers serializes a member batch to CBOR bytes.
func MarshalMembers(m *Members) ([]byte, error) {
	return cborEncMode.Marshal(m)
}

// UnmarshalMembers deserializes a member batch from CBOR bytes.
func UnmarshalMembers(data []byte) (*Members, error) {
	var m Members
	if err := cbor.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal members: %w", err)
	}
	return &m, nil
}

// MarshalClass serializes a Class to CBOR bytes.
func MarshalClass(c *Class) ([]byte, error) {
	return cborEncMode.Marshal(c)
}

// UnmarshalClass deserializes a Class from CBOR bytes.
func UnmarshalClass(data []byte) (*Class, error) {
	var c Class
	if err := cbor.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal class: %w", err)
	}
	return &c, nil
}

// MarshalClasses serializes a list of classes to CBOR bytes.
func MarshalClasses(cs []*Class) ([]byte, error) {
	return cborEncMode.Marshal(cs)
}

// UnmarshalClasses deserializes a list of classes from CBOR bytes.
func UnmarshalClasses(data []byte) ([]*Class, error) {
	var cs []*Class
	if err := cbor.Unmarshal(data, &cs); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal classes: %w", err)
	}
	return cs, nil
}

// MarshalValue encodes any value with the canonical encoder. Callers use it
// to build digests over composite inputs.
func MarshalValue(v interface{}) ([]byte, error) {
	return cborEncMode.Marshal(v)
}
