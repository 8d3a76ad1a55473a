package utxoledger

import (
	"encoding/binary"
	"io"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/serializer/v2/marshalutil"
	"github.com/iotaledger/whiteflag/pkg/model"
	"github.com/iotaledger/whiteflag/pkg/utils"
)

// Helpers to serialize/deserialize into/from snapshots

func (o *Output) SnapshotBytes() []byte {
	m := marshalutil.New()
	m.WriteBytes(o.outputID[:])
	m.WriteBytes(o.blockID[:])
	m.WriteUint32(uint32(o.msIndexBooked))
	m.WriteUint32(o.msTimestampBooked)

	outputBytes := o.output.Bytes()
	m.WriteUint32(uint32(len(outputBytes)))
	m.WriteBytes(outputBytes)

	return m.Bytes()
}

func OutputFromSnapshotReader(reader io.ReadSeeker) (*Output, error) {
	outputID := model.OutputID{}
	if _, err := io.ReadFull(reader, outputID[:]); err != nil {
		return nil, ierrors.Errorf("unable to read LS output ID: %w", err)
	}

	blockID := model.BlockID{}
	if _, err := io.ReadFull(reader, blockID[:]); err != nil {
		return nil, ierrors.Errorf("unable to read LS block ID: %w", err)
	}

	var indexBooked uint32
	if err := binary.Read(reader, binary.LittleEndian, &indexBooked); err != nil {
		return nil, ierrors.Errorf("unable to read LS output milestone index booked: %w", err)
	}

	var timestampBooked uint32
	if err := binary.Read(reader, binary.LittleEndian, &timestampBooked); err != nil {
		return nil, ierrors.Errorf("unable to read LS output milestone timestamp booked: %w", err)
	}

	var outputLength uint32
	if err := binary.Read(reader, binary.LittleEndian, &outputLength); err != nil {
		return nil, ierrors.Errorf("unable to read LS output length: %w", err)
	}

	outputBytes := make([]byte, outputLength)
	if _, err := io.ReadFull(reader, outputBytes); err != nil {
		return nil, ierrors.Errorf("unable to read LS output bytes: %w", err)
	}

	output, _, err := model.OutputFromBytes(outputBytes)
	if err != nil {
		return nil, ierrors.Errorf("invalid LS output: %w", err)
	}

	return CreateOutput(outputID, blockID, model.MilestoneIndex(indexBooked), timestampBooked, output), nil
}

func (s *Spent) SnapshotBytes() []byte {
	m := marshalutil.New()
	m.WriteBytes(s.Output().SnapshotBytes())
	m.WriteBytes(s.transactionIDSpent[:])
	// we don't need to write msIndexSpent because this info is available in the milestone diff that consumes the output
	return m.Bytes()
}

func SpentFromSnapshotReader(reader io.ReadSeeker, msIndexSpent model.MilestoneIndex) (*Spent, error) {
	output, err := OutputFromSnapshotReader(reader)
	if err != nil {
		return nil, err
	}

	transactionIDSpent := model.TransactionID{}
	if _, err := io.ReadFull(reader, transactionIDSpent[:]); err != nil {
		return nil, ierrors.Errorf("unable to read LS transaction ID spent: %w", err)
	}

	return NewSpent(output, transactionIDSpent, msIndexSpent), nil
}

func ReadMilestoneDiffFromSnapshotReader(reader io.ReadSeeker) (*MilestoneDiff, error) {
	msDiff := &MilestoneDiff{}

	var diffIndex uint32
	if err := binary.Read(reader, binary.LittleEndian, &diffIndex); err != nil {
		return nil, ierrors.Errorf("unable to read milestone diff index: %w", err)
	}
	msDiff.Index = model.MilestoneIndex(diffIndex)

	var createdCount uint64
	if err := binary.Read(reader, binary.LittleEndian, &createdCount); err != nil {
		return nil, ierrors.Errorf("unable to read milestone diff created count: %w", err)
	}

	msDiff.Outputs = make(Outputs, createdCount)

	for i := uint64(0); i < createdCount; i++ {
		var err error
		msDiff.Outputs[i], err = OutputFromSnapshotReader(reader)
		if err != nil {
			return nil, ierrors.Errorf("unable to read milestone diff output: %w", err)
		}
	}

	var consumedCount uint64
	if err := binary.Read(reader, binary.LittleEndian, &consumedCount); err != nil {
		return nil, ierrors.Errorf("unable to read milestone diff consumed count: %w", err)
	}

	msDiff.Spents = make(Spents, consumedCount)

	for i := uint64(0); i < consumedCount; i++ {
		var err error
		msDiff.Spents[i], err = SpentFromSnapshotReader(reader, msDiff.Index)
		if err != nil {
			return nil, ierrors.Errorf("unable to read milestone diff spent: %w", err)
		}
	}

	return msDiff, nil
}

func WriteMilestoneDiffToSnapshotWriter(writer io.WriteSeeker, diff *MilestoneDiff) (written int64, err error) {
	var totalBytesWritten int64

	if err := utils.WriteValueFunc(writer, uint32(diff.Index), &totalBytesWritten); err != nil {
		return 0, ierrors.Wrap(err, "unable to write milestone diff index")
	}

	if err := utils.WriteValueFunc(writer, uint64(len(diff.Outputs)), &totalBytesWritten); err != nil {
		return 0, ierrors.Wrap(err, "unable to write milestone diff created count")
	}

	for _, output := range diff.sortedOutputs() {
		if err := utils.WriteBytesFunc(writer, output.SnapshotBytes(), &totalBytesWritten); err != nil {
			return 0, ierrors.Wrap(err, "unable to write milestone diff created output")
		}
	}

	if err := utils.WriteValueFunc(writer, uint64(len(diff.Spents)), &totalBytesWritten); err != nil {
		return 0, ierrors.Wrap(err, "unable to write milestone diff consumed count")
	}

	for _, spent := range diff.sortedSpents() {
		if err := utils.WriteBytesFunc(writer, spent.SnapshotBytes(), &totalBytesWritten); err != nil {
			return 0, ierrors.Wrap(err, "unable to write milestone diff consumed output")
		}
	}

	return totalBytesWritten, nil
}

// Import imports the ledger state from the given reader.
func (m *Manager) Import(reader io.ReadSeeker) error {
	m.WriteLockLedger()
	defer m.WriteUnlockLedger()

	var snapshotLedgerIndex uint32
	if err := binary.Read(reader, binary.LittleEndian, &snapshotLedgerIndex); err != nil {
		return ierrors.Errorf("unable to read LS ledger index: %w", err)
	}

	if err := m.StoreLedgerIndexWithoutLocking(model.MilestoneIndex(snapshotLedgerIndex)); err != nil {
		return err
	}

	var outputCount uint64
	if err := binary.Read(reader, binary.LittleEndian, &outputCount); err != nil {
		return ierrors.Errorf("unable to read LS output count: %w", err)
	}

	var msDiffCount uint64
	if err := binary.Read(reader, binary.LittleEndian, &msDiffCount); err != nil {
		return ierrors.Errorf("unable to read LS milestone diff count: %w", err)
	}

	for i := uint64(0); i < outputCount; i++ {
		output, err := OutputFromSnapshotReader(reader)
		if err != nil {
			return ierrors.Errorf("at pos %d: %w", i, err)
		}

		if err := m.importUnspentOutputWithoutLocking(output); err != nil {
			return err
		}
	}

	for i := uint64(0); i < msDiffCount; i++ {
		msDiff, err := ReadMilestoneDiffFromSnapshotReader(reader)
		if err != nil {
			return err
		}

		if msDiff.Index != model.MilestoneIndex(snapshotLedgerIndex-uint32(i)) {
			return ierrors.Errorf("invalid LS milestone index. %d vs %d", msDiff.Index, snapshotLedgerIndex-uint32(i))
		}

		if err := m.RollbackDiffWithoutLocking(msDiff.Index, msDiff.Outputs, msDiff.Spents); err != nil {
			return err
		}
	}

	if err := m.stateTree.Commit(); err != nil {
		return ierrors.Wrap(err, "unable to commit state tree")
	}

	return nil
}

// Export exports the ledger state at the given target index to the given writer.
func (m *Manager) Export(writer io.WriteSeeker, targetIndex model.MilestoneIndex) error {
	m.ReadLockLedger()
	defer m.ReadUnlockLedger()

	ledgerIndex, err := m.ReadLedgerIndexWithoutLocking()
	if err != nil {
		return err
	}
	if err := utils.WriteValueFunc(writer, uint32(ledgerIndex)); err != nil {
		return ierrors.Wrap(err, "unable to write ledger index")
	}

	var relativeCountersPosition int64

	var outputCount uint64
	var msDiffCount uint64

	// Outputs Count
	// The amount of UTXOs contained within this snapshot.
	if err := utils.WriteValueFunc(writer, outputCount, &relativeCountersPosition); err != nil {
		return ierrors.Wrap(err, "unable to write outputs count")
	}

	// Milestone Diffs Count
	// The amount of milestone diffs contained within this snapshot.
	if err := utils.WriteValueFunc(writer, msDiffCount, &relativeCountersPosition); err != nil {
		return ierrors.Wrap(err, "unable to write milestone diffs count")
	}

	// Get all UTXOs and sort them by outputID
	outputIDs, err := m.UnspentOutputsIDs(ReadLockLedger(false))
	if err != nil {
		return ierrors.Wrap(err, "error while retrieving unspent outputIDs")
	}

	for _, outputID := range outputIDs.RemoveDupsAndSort() {
		output, err := m.ReadOutputByOutputIDWithoutLocking(outputID)
		if err != nil {
			return ierrors.Wrapf(err, "error while retrieving output %s", outputID.ToHex())
		}

		if err := utils.WriteBytesFunc(writer, output.SnapshotBytes(), &relativeCountersPosition); err != nil {
			return ierrors.Wrap(err, "unable to write output")
		}

		outputCount++
	}

	for diffIndex := ledgerIndex; diffIndex > targetIndex; diffIndex-- {
		msDiff, err := m.MilestoneDiffWithoutLocking(diffIndex)
		if err != nil {
			return ierrors.Wrapf(err, "error while retrieving milestone diff for milestone %d", diffIndex)
		}

		written, err := WriteMilestoneDiffToSnapshotWriter(writer, msDiff)
		if err != nil {
			return ierrors.Wrapf(err, "error while writing milestone diff for milestone %d", diffIndex)
		}

		relativeCountersPosition += written
		msDiffCount++
	}

	// seek back to the file position of the counters
	if _, err := writer.Seek(-relativeCountersPosition, io.SeekCurrent); err != nil {
		return ierrors.Errorf("unable to seek to LS counter placeholders: %w", err)
	}

	var countersSize int64

	// Outputs Count
	// The amount of UTXOs contained within this snapshot.
	if err := utils.WriteValueFunc(writer, outputCount, &countersSize); err != nil {
		return ierrors.Wrap(err, "unable to write outputs count")
	}

	// Milestone Diffs Count
	// The amount of milestone diffs contained within this snapshot.
	if err := utils.WriteValueFunc(writer, msDiffCount, &countersSize); err != nil {
		return ierrors.Wrap(err, "unable to write milestone diffs count")
	}

	// seek back to the last write position
	if _, err := writer.Seek(relativeCountersPosition-countersSize, io.SeekCurrent); err != nil {
		return ierrors.Errorf("unable to seek to LS last written position: %w", err)
	}

	return nil
}

// Rollback rolls back the ledger state to the given target milestone.
func (m *Manager) Rollback(targetIndex model.MilestoneIndex) error {
	m.WriteLockLedger()
	defer m.WriteUnlockLedger()

	ledgerIndex, err := m.ReadLedgerIndexWithoutLocking()
	if err != nil {
		return err
	}

	for diffIndex := ledgerIndex; diffIndex > targetIndex; diffIndex-- {
		msDiff, err := m.MilestoneDiffWithoutLocking(diffIndex)
		if err != nil {
			return err
		}

		if err := m.RollbackDiffWithoutLocking(msDiff.Index, msDiff.Outputs, msDiff.Spents); err != nil {
			return err
		}
	}

	if err := m.stateTree.Commit(); err != nil {
		return ierrors.Wrap(err, "unable to commit state tree")
	}

	return nil
}
