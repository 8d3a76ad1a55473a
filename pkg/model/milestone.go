package model

import (
	"crypto/ed25519"
	"sync"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/serializer/v2/marshalutil"
)

const (
	// MinMilestoneSignaturesCount is the minimum amount of signatures a milestone carries.
	MinMilestoneSignaturesCount = 1
	// MaxMilestoneSignaturesCount is the maximum amount of signatures a milestone carries.
	MaxMilestoneSignaturesCount = 255
)

var ErrInvalidMilestoneSignaturesCount = ierrors.New("invalid milestone signatures count")

// MilestoneSignature is one signature of the milestone essence by a coordinator key.
// Signature validation is a quorum concern outside of this module.
type MilestoneSignature struct {
	PublicKey ed25519.PublicKey
	Signature [ed25519.SignatureSize]byte
}

// MilestonePayload designates its carrying block as the head of a confirmed past
// cone at the given index and commits to the white-flag outcome via merkle roots.
type MilestonePayload struct {
	Index               MilestoneIndex
	Timestamp           uint32
	PreviousMilestoneID MilestoneID
	Parents             BlockIDs
	// ConfirmedMerkleRoot commits to all blocks referenced by this milestone.
	ConfirmedMerkleRoot Identifier
	// AppliedMerkleRoot commits to the included, ledger-mutating blocks only.
	AppliedMerkleRoot Identifier
	Signatures        []MilestoneSignature

	idOnce sync.Once
	id     MilestoneID
}

func (p *MilestonePayload) Type() PayloadType {
	return PayloadMilestone
}

// ID returns the content hash of the milestone essence.
func (p *MilestonePayload) ID() MilestoneID {
	p.idOnce.Do(func() {
		ms := marshalutil.New()
		p.serializeEssence(ms)
		p.id = MilestoneID(IdentifierFromData(ms.Bytes()))
	})

	return p.id
}

func (p *MilestonePayload) serializeEssence(ms *marshalutil.MarshalUtil) {
	ms.WriteUint32(uint32(p.Index))
	ms.WriteUint32(p.Timestamp)
	ms.WriteBytes(p.PreviousMilestoneID[:])
	ms.WriteUint8(uint8(len(p.Parents)))
	for _, parent := range p.Parents {
		ms.WriteBytes(parent[:])
	}
	ms.WriteBytes(p.ConfirmedMerkleRoot[:])
	ms.WriteBytes(p.AppliedMerkleRoot[:])
}

func (p *MilestonePayload) Bytes() []byte {
	ms := marshalutil.New()
	ms.WriteByte(byte(PayloadMilestone))
	p.serializeEssence(ms)

	ms.WriteUint8(uint8(len(p.Signatures)))
	for _, signature := range p.Signatures {
		ms.WriteBytes(signature.PublicKey)
		ms.WriteBytes(signature.Signature[:])
	}

	return ms.Bytes()
}

func milestonePayloadFromMarshalUtil(ms *marshalutil.MarshalUtil) (*MilestonePayload, error) {
	payload := &MilestonePayload{}

	index, err := ms.ReadUint32()
	if err != nil {
		return nil, ierrors.Wrap(err, "unable to read milestone index")
	}
	payload.Index = MilestoneIndex(index)

	if payload.Timestamp, err = ms.ReadUint32(); err != nil {
		return nil, ierrors.Wrap(err, "unable to read milestone timestamp")
	}

	previousIDBytes, err := ms.ReadBytes(MilestoneIDLength)
	if err != nil {
		return nil, ierrors.Wrap(err, "unable to read previous milestone id")
	}
	if payload.PreviousMilestoneID, _, err = MilestoneIDFromBytes(previousIDBytes); err != nil {
		return nil, err
	}

	parentsCount, err := ms.ReadUint8()
	if err != nil {
		return nil, ierrors.Wrap(err, "unable to read milestone parents count")
	}
	if parentsCount < MinParentsCount || parentsCount > MaxParentsCount {
		return nil, ierrors.Wrapf(ErrInvalidParentsCount, "%d", parentsCount)
	}
	for i := uint8(0); i < parentsCount; i++ {
		parentBytes, err := ms.ReadBytes(BlockIDLength)
		if err != nil {
			return nil, ierrors.Wrapf(err, "unable to read milestone parent %d", i)
		}
		parent, _, err := BlockIDFromBytes(parentBytes)
		if err != nil {
			return nil, err
		}
		payload.Parents = append(payload.Parents, parent)
	}

	confirmedRootBytes, err := ms.ReadBytes(IdentifierLength)
	if err != nil {
		return nil, ierrors.Wrap(err, "unable to read confirmed merkle root")
	}
	if payload.ConfirmedMerkleRoot, _, err = IdentifierFromBytes(confirmedRootBytes); err != nil {
		return nil, err
	}

	appliedRootBytes, err := ms.ReadBytes(IdentifierLength)
	if err != nil {
		return nil, ierrors.Wrap(err, "unable to read applied merkle root")
	}
	if payload.AppliedMerkleRoot, _, err = IdentifierFromBytes(appliedRootBytes); err != nil {
		return nil, err
	}

	signaturesCount, err := ms.ReadUint8()
	if err != nil {
		return nil, ierrors.Wrap(err, "unable to read milestone signatures count")
	}
	if signaturesCount < MinMilestoneSignaturesCount {
		return nil, ierrors.Wrapf(ErrInvalidMilestoneSignaturesCount, "%d", signaturesCount)
	}
	for i := uint8(0); i < signaturesCount; i++ {
		pubKey, err := ms.ReadBytes(ed25519.PublicKeySize)
		if err != nil {
			return nil, ierrors.Wrapf(err, "unable to read milestone signature public key %d", i)
		}
		signatureBytes, err := ms.ReadBytes(ed25519.SignatureSize)
		if err != nil {
			return nil, ierrors.Wrapf(err, "unable to read milestone signature %d", i)
		}

		signature := MilestoneSignature{PublicKey: append(ed25519.PublicKey{}, pubKey...)}
		copy(signature.Signature[:], signatureBytes)
		payload.Signatures = append(payload.Signatures, signature)
	}

	return payload, nil
}
