// internal/chain/programs/token2022/extensions_test.go
package token2022

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

func tlvMint(entries ...func([]byte) []byte) []byte {
	data := make([]byte, tlvStart)
	for _, entry := range entries {
		data = entry(data)
	}
	return data
}

func tlvEntry(extType ExtensionType, value []byte) func([]byte) []byte {
	return func(data []byte) []byte {
		header := make([]byte, tlvHeaderLen)
		binary.LittleEndian.PutUint16(header, uint16(extType))
		binary.LittleEndian.PutUint16(header[2:], uint16(len(value)))
		return append(append(data, header...), value...)
	}
}

func TestMintLenForExtensions(t *testing.T) {
	size, err := MintLenForExtensions(nil)
	require.NoError(t, err)
	require.Equal(t, uint64(baseMintLen), size)

	size, err = MintLenForExtensions([]ExtensionType{ExtTransferHook})
	require.NoError(t, err)
	require.Equal(t, uint64(tlvStart+tlvHeaderLen+64), size)

	size, err = MintLenForExtensions([]ExtensionType{ExtTransferHook, ExtMetadataPointer})
	require.NoError(t, err)
	require.Equal(t, uint64(tlvStart+2*(tlvHeaderLen+64)), size)

	_, err = MintLenForExtensions([]ExtensionType{ExtensionType(999)})
	require.Error(t, err)
}

func TestTransferHookProgramFound(t *testing.T) {
	program := solana.MustPublicKeyFromBase58("99NTyZ796bpvwLLhMmsfwo8J3Wu3rUioUQsHE9CSYQKz")
	value := make([]byte, 64)
	copy(value[32:], program.Bytes())

	found, ok, err := TransferHookProgram(tlvMint(tlvEntry(ExtTransferHook, value)))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, program, found)
}

func TestTransferHookProgramZeroKeyMeansNone(t *testing.T) {
	_, ok, err := TransferHookProgram(tlvMint(tlvEntry(ExtTransferHook, make([]byte, 64))))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTransferHookProgramAbsent(t *testing.T) {
	// base mint without extension region
	_, ok, err := TransferHookProgram(make([]byte, baseMintLen))
	require.NoError(t, err)
	require.False(t, ok)

	// extension region with an unrelated entry
	_, ok, err = TransferHookProgram(tlvMint(tlvEntry(ExtMetadataPointer, make([]byte, 64))))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTransferHookProgramSkipsEarlierEntries(t *testing.T) {
	program := solana.MustPublicKeyFromBase58("99NTyZ796bpvwLLhMmsfwo8J3Wu3rUioUQsHE9CSYQKz")
	hookValue := make([]byte, 64)
	copy(hookValue[32:], program.Bytes())

	data := tlvMint(
		tlvEntry(ExtTransferFeeConfig, make([]byte, 108)),
		tlvEntry(ExtTransferHook, hookValue),
	)
	found, ok, err := TransferHookProgram(data)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, program, found)
}

func TestParseExtensionsOverrun(t *testing.T) {
	data := make([]byte, tlvStart+tlvHeaderLen)
	binary.LittleEndian.PutUint16(data[tlvStart:], uint16(ExtTransferHook))
	binary.LittleEndian.PutUint16(data[tlvStart+2:], 64) // no value bytes follow

	_, _, err := TransferHookProgram(data)
	require.Error(t, err)
}
