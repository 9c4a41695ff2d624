// internal/chain/programs/token2022/metadata.go
package token2022

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// The token metadata interface addresses instructions by the first 8 bytes of
// the SHA-256 of a namespaced name.
func splDiscriminator(name string) []byte {
	sum := sha256.Sum256([]byte(name))
	return sum[:8]
}

var (
	metadataInitializeDiscriminator  = splDiscriminator("spl_token_metadata_interface:initialize_account")
	metadataUpdateFieldDiscriminator = splDiscriminator("spl_token_metadata_interface:updating_field")
)

// InitializeMetadataInstruction writes the base metadata record (name,
// symbol, uri) into the mint itself. The mint must already be initialized and
// must carry a metadata pointer targeting itself; the account must hold
// enough lamports for the grown data.
func InitializeMetadataInstruction(mint, updateAuthority, mintAuthority solana.PublicKey, name, symbol, uri string) solana.Instruction {
	buf := new(bytes.Buffer)
	buf.Write(metadataInitializeDiscriminator)
	writeBorshString(buf, name)
	writeBorshString(buf, symbol)
	writeBorshString(buf, uri)
	return solana.NewInstruction(ProgramID, []*solana.AccountMeta{
		{PublicKey: mint, IsSigner: false, IsWritable: true}, // metadata lives on the mint
		{PublicKey: updateAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: mint, IsSigner: false, IsWritable: false},
		{PublicKey: mintAuthority, IsSigner: true, IsWritable: false},
	}, buf.Bytes())
}

// UpdateMetadataFieldInstruction sets one additional key/value pair on the
// mint's metadata record.
func UpdateMetadataFieldInstruction(mint, updateAuthority solana.PublicKey, key, value string) solana.Instruction {
	buf := new(bytes.Buffer)
	buf.Write(metadataUpdateFieldDiscriminator)
	// Field enum: 0=Name, 1=Symbol, 2=Uri, 3=Key(custom).
	buf.WriteByte(3)
	writeBorshString(buf, key)
	writeBorshString(buf, value)
	return solana.NewInstruction(ProgramID, []*solana.AccountMeta{
		{PublicKey: mint, IsSigner: false, IsWritable: true},
		{PublicKey: updateAuthority, IsSigner: true, IsWritable: false},
	}, buf.Bytes())
}

// MetadataSpace estimates the TLV bytes the metadata record will occupy, used
// to fund the mint account with extra rent before initialization. Layout:
// update authority + mint (64), three borsh strings, and the additional
// key/value vector.
func MetadataSpace(name, symbol, uri string, additional map[string]string) uint64 {
	size := uint64(tlvHeaderLen) + 64
	size += 4 + uint64(len(name))
	size += 4 + uint64(len(symbol))
	size += 4 + uint64(len(uri))
	size += 4 // vec length
	for k, v := range additional {
		size += 4 + uint64(len(k)) + 4 + uint64(len(v))
	}
	return size
}

func writeBorshString(buf *bytes.Buffer, s string) {
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(s)))
	buf.WriteString(s)
}
