// internal/chain/programs/token2022/extensions.go
package token2022

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// ExtensionType identifies a TLV entry in a Token-2022 account.
type ExtensionType uint16

const (
	ExtTransferFeeConfig     ExtensionType = 1
	ExtInterestBearingConfig ExtensionType = 10
	ExtTransferHook          ExtensionType = 14
	ExtMetadataPointer       ExtensionType = 18
	ExtTokenMetadata         ExtensionType = 19
	ExtGroupMemberPointer    ExtensionType = 22
)

const (
	// baseMintLen is the size of a mint without extensions.
	baseMintLen = 82
	// accountTypeOffset is where the account-type byte sits in an account
	// that carries extensions; the TLV region starts right after it.
	accountTypeOffset = 165
	tlvStart          = accountTypeOffset + 1
	tlvHeaderLen      = 4 // u16 type + u16 length
)

// Fixed on-chain sizes of the extension values this client initializes.
var extensionValueLen = map[ExtensionType]int{
	ExtTransferFeeConfig:     108,
	ExtInterestBearingConfig: 52,
	ExtTransferHook:          64,
	ExtMetadataPointer:       64,
	ExtGroupMemberPointer:    64,
}

// MintLenForExtensions computes the account size a mint needs so that all of
// the given fixed-length extensions fit. Variable-length extensions (token
// metadata) are not allocated at creation time; their rent is funded
// separately before initialization.
func MintLenForExtensions(extensions []ExtensionType) (uint64, error) {
	if len(extensions) == 0 {
		return baseMintLen, nil
	}
	size := uint64(tlvStart)
	for _, ext := range extensions {
		valueLen, ok := extensionValueLen[ext]
		if !ok {
			return 0, fmt.Errorf("unknown extension type %d", ext)
		}
		size += tlvHeaderLen + uint64(valueLen)
	}
	return size, nil
}

// parseExtensions walks the TLV region of a mint account and returns the raw
// value bytes per extension type. Malformed regions return an error; callers
// that must stay non-fatal treat that as "no extensions".
func parseExtensions(data []byte) (map[ExtensionType][]byte, error) {
	if len(data) <= tlvStart {
		return map[ExtensionType][]byte{}, nil
	}
	out := make(map[ExtensionType][]byte)
	offset := tlvStart
	for offset+tlvHeaderLen <= len(data) {
		extType := ExtensionType(binary.LittleEndian.Uint16(data[offset:]))
		length := int(binary.LittleEndian.Uint16(data[offset+2:]))
		offset += tlvHeaderLen
		if extType == 0 { // uninitialized padding terminates the region
			break
		}
		if offset+length > len(data) {
			return nil, fmt.Errorf("extension %d overruns account data (%d+%d > %d)", extType, offset, length, len(data))
		}
		out[extType] = data[offset : offset+length]
		offset += length
	}
	return out, nil
}

// TransferHookProgram extracts the transfer-hook program id from a mint's
// extension region. Returns (zero, false) when the mint carries no hook
// extension or the embedded program id is the zero key.
func TransferHookProgram(data []byte) (solana.PublicKey, bool, error) {
	extensions, err := parseExtensions(data)
	if err != nil {
		return solana.PublicKey{}, false, err
	}
	value, ok := extensions[ExtTransferHook]
	if !ok || len(value) < 64 {
		return solana.PublicKey{}, false, nil
	}
	// TransferHook value layout: authority (32) then program id (32).
	programID := solana.PublicKeyFromBytes(value[32:64])
	if programID.IsZero() {
		return solana.PublicKey{}, false, nil
	}
	return programID, true, nil
}
