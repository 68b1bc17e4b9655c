// Package usn implements UsnJournal (C10): a reader over the two named
// $DATA streams of $Extend\$UsnJrnl — :$Max (journal limits) and :$J (the
// sparse change-record stream itself), iterated backward from the tail
// (§4.9).
package usn

import (
	"fmt"

	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/attr"
	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/block"
	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/filerecord"
	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/types"
	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/winstring"
)

const maxStreamName = "$Max"
const journalStreamName = "$J"
const recordHeaderSize = 60

// DataSource is the $DATA range-read primitive the volume layer supplies.
// usn never touches a block device or file record chain directly.
type DataSource interface {
	ReadAttributeData(a attr.Attribute, offset, length uint64) ([]byte, error)
}

// Info is the decoded :$Max stream (§4.9).
type Info struct {
	Valid bool

	MaximumSize     uint64
	AllocationDelta uint64
	JournalID       uint64
	LowestValidUSN  uint64
}

func decodeInfo(data block.Block) Info {
	if data.Len() < 32 {
		return Info{}
	}
	maxSize, ok1 := data.Uint64(0)
	allocDelta, ok2 := data.Uint64(8)
	journalID, ok3 := data.Uint64(16)
	lowestUSN, ok4 := data.Uint64(24)
	if !(ok1 && ok2 && ok3 && ok4) {
		return Info{}
	}
	return Info{
		Valid:           true,
		MaximumSize:     maxSize,
		AllocationDelta: allocDelta,
		JournalID:       journalID,
		LowestValidUSN:  lowestUSN,
	}
}

// Record is one decoded change-journal entry (§3 "UsnJournal entry").
type Record struct {
	Valid bool

	Length              uint32
	MajorVersion        uint16
	MinorVersion        uint16
	FileReference       types.FileReference
	ParentFileReference types.FileReference
	USN                 uint64
	Timestamp           types.FileTime
	Reason              types.UsnReason
	SourceInfo          uint32
	SecurityID          uint32
	FileAttributes      uint32
	Name                string
}

// decodeRecord decodes one JEntry at the start of data, returning the
// record, its 8-byte-aligned on-disk size, and whether decode succeeded. A
// zero length, a header that doesn't fit, or a name range that overruns the
// record is the padding/end-of-cluster sentinel the reader stops on (§4.9).
func decodeRecord(data block.Block) (Record, int, bool) {
	if data.Len() < recordHeaderSize {
		return Record{}, 0, false
	}
	length, ok1 := data.Uint32(0)
	if !ok1 || length < recordHeaderSize || int(length) > data.Len() {
		return Record{}, 0, false
	}
	majorVer, ok2 := data.Uint16(4)
	minorVer, ok3 := data.Uint16(6)
	rawFileRef, ok4 := data.Uint64(8)
	rawParentRef, ok5 := data.Uint64(16)
	usn, ok6 := data.Uint64(24)
	timestamp, ok7 := data.Uint64(32)
	reason, ok8 := data.Uint32(40)
	sourceInfo, ok9 := data.Uint32(44)
	securityID, ok10 := data.Uint32(48)
	fileAttrs, ok11 := data.Uint32(52)
	nameLength, ok12 := data.Uint16(56)
	nameOffset, ok13 := data.Uint16(58)
	if !(ok2 && ok3 && ok4 && ok5 && ok6 && ok7 && ok8 && ok9 && ok10 && ok11 && ok12 && ok13) {
		return Record{}, 0, false
	}
	if uint64(nameOffset)+uint64(nameLength) > uint64(length) {
		return Record{}, 0, false
	}
	nameBytes := data.Slice(int(nameOffset), int(nameLength))
	if nameBytes.Len() != int(nameLength) {
		return Record{}, 0, false
	}

	r := Record{
		Valid:               true,
		Length:              length,
		MajorVersion:        majorVer,
		MinorVersion:        minorVer,
		FileReference:       types.FileReferenceFromRaw(rawFileRef),
		ParentFileReference: types.FileReferenceFromRaw(rawParentRef),
		USN:                 usn,
		Timestamp:           types.FileTime(timestamp),
		Reason:              types.UsnReason(reason),
		SourceInfo:          sourceInfo,
		SecurityID:          securityID,
		FileAttributes:      fileAttrs,
		Name:                winstring.FromBytes(nameBytes.Bytes()).Decode(),
	}
	return r, align8(int(length)), true
}

func align8(n int) int { return (n + 7) &^ 7 }

// Journal is UsnJournal (C10): the :$Max / :$J stream pair resolved off an
// already-loaded $Extend\$UsnJrnl file record.
type Journal struct {
	src         DataSource
	maxAttr     attr.Attribute
	jAttr       attr.Attribute
	clusterSize uint64
}

// Open locates the :$Max and :$J named $DATA streams on rec, the file
// record for $Extend\$UsnJrnl (found through the directory index rooted at
// FRN 11, §4.9). clusterSize is the volume's bytes-per-cluster, needed to
// convert a cluster-granularity VCN into a byte offset into :$J.
func Open(src DataSource, rec filerecord.Record, clusterSize uint32) (Journal, bool) {
	maxAttr, ok := rec.FindAttr(types.AttrData, toWinString(maxStreamName), nil)
	if !ok {
		return Journal{}, false
	}
	jAttr, ok := rec.FindAttr(types.AttrData, toWinString(journalStreamName), nil)
	if !ok {
		return Journal{}, false
	}
	if clusterSize == 0 {
		return Journal{}, false
	}
	return Journal{src: src, maxAttr: maxAttr, jAttr: jAttr, clusterSize: uint64(clusterSize)}, true
}

// Max decodes the :$Max stream (§4.9).
func (j Journal) Max() (Info, error) {
	raw, err := j.src.ReadAttributeData(j.maxAttr, 0, 32)
	if err != nil {
		return Info{}, err
	}
	return decodeInfo(block.New(raw)), nil
}

// streamLength returns :$J's real size — its high-water mark, not its
// allocated size, since trailing clusters beyond the last write are never
// materialized.
func (j Journal) streamLength() (uint64, error) {
	dp, ok := j.jAttr.Payload.(attr.DataPayload)
	if !ok {
		return 0, fmt.Errorf("usn: $J payload not decoded")
	}
	if dp.Resident {
		return uint64(len(dp.ResidentBytes)), nil
	}
	return dp.NR.RealSize, nil
}

// LogsAtVCN reads one cluster of :$J at the given VCN and decodes every
// JEntry record in it, stopping at the first record whose header doesn't
// fit, whose length is zero, or whose fields are otherwise inconsistent —
// the padding that fills the remainder of the cluster (§4.9).
func (j Journal) LogsAtVCN(vcn uint64) ([]Record, error) {
	raw, err := j.src.ReadAttributeData(j.jAttr, vcn*j.clusterSize, j.clusterSize)
	if err != nil {
		return nil, err
	}
	data := block.New(raw)

	var out []Record
	pos := 0
	for pos < data.Len() {
		rec, n, ok := decodeRecord(data.SliceFrom(pos))
		if !ok {
			break
		}
		out = append(out, rec)
		pos += n
	}
	return out, nil
}

// LastN walks backward from the final cluster of :$J, accumulating records
// until n are gathered or the stream is exhausted, then returns them
// oldest-to-newest. Leading sparse clusters are holes with no records, so a
// forward scan from offset 0 would waste effort walking them; reverse scan
// from the high-water mark is the canonical entry point (§4.9).
func (j Journal) LastN(n int) ([]Record, error) {
	if n <= 0 {
		return nil, nil
	}
	length, err := j.streamLength()
	if err != nil {
		return nil, err
	}
	if length == 0 || j.clusterSize == 0 {
		return nil, nil
	}

	lastVCN := (length - 1) / j.clusterSize
	var collected []Record
	for vcn := int64(lastVCN); vcn >= 0 && len(collected) < n; vcn-- {
		recs, err := j.LogsAtVCN(uint64(vcn))
		if err != nil {
			return nil, err
		}
		collected = append(recs, collected...)
	}
	if len(collected) > n {
		collected = collected[len(collected)-n:]
	}
	return collected, nil
}

func toWinString(s string) winstring.String {
	out := make(winstring.String, len(s))
	for i, r := range s {
		out[i] = uint16(r)
	}
	return out
}
