// Package runs implements DataRuns (C4): the run-length-encoded extent list
// parser and its materialization into absolute sector maps.
package runs

import (
	"fmt"

	"github.com/ntfs-tools/ntfsinspector/internal/ntfs/block"
)

// Run is one parsed extent. Sparse runs carry no physical LCN; Clusters is
// still the span they cover (materialized as zeroes on read).
type Run struct {
	LCN      uint64
	Clusters uint64
	Sparse   bool
}

// header is the two nibbles at the start of each run.
type header struct {
	lengthFieldSize uint8
	offsetFieldSize uint8
}

// Walk walks the run list in data until a zero terminator byte, end of
// input, or the callback asks to stop (by returning false). It returns the
// number of bytes consumed, including the terminator byte when one was
// found. Fields whose size exceeds 8 bytes are unsupported and end the walk
// without consuming further bytes (Unsupported, §7).
func Walk(data block.Block, callback func(lcn uint64, clusters uint64, sparse bool) bool) int {
	pos := 0
	var lcn int64
	for pos < data.Len() {
		b, ok := data.At(pos)
		if !ok {
			break
		}
		if b == 0 {
			pos++
			break
		}
		h := header{
			lengthFieldSize: b & 0x0F,
			offsetFieldSize: (b >> 4) & 0x0F,
		}
		pos++
		if h.lengthFieldSize > 8 || h.offsetFieldSize > 8 {
			break
		}

		clusters, ok := readUint(data, pos, int(h.lengthFieldSize))
		if !ok {
			break
		}
		pos += int(h.lengthFieldSize)

		sparse := h.offsetFieldSize == 0
		var delta int64
		if !sparse {
			d, ok := readSigned(data, pos, int(h.offsetFieldSize))
			if !ok {
				break
			}
			delta = d
			pos += int(h.offsetFieldSize)
		}
		lcn += delta

		if !callback(uint64(lcn), clusters, sparse) {
			break
		}
	}
	return pos
}

// readUint reads n little-endian bytes (n in [0,8]) as an unsigned value.
func readUint(data block.Block, off, n int) (uint64, bool) {
	if n == 0 {
		return 0, true
	}
	s := data.Slice(off, n)
	if s.Len() != n {
		return 0, false
	}
	var v uint64
	for i := n - 1; i >= 0; i-- {
		byt, _ := s.At(i)
		v = v<<8 | uint64(byt)
	}
	return v, true
}

// readSigned reads n little-endian bytes (n in [1,8]) as a sign-extended
// signed value — the offset field is a signed delta from the previous LCN.
func readSigned(data block.Block, off, n int) (int64, bool) {
	s := data.Slice(off, n)
	if s.Len() != n {
		return 0, false
	}
	var v uint64
	for i := n - 1; i >= 0; i-- {
		byt, _ := s.At(i)
		v = v<<8 | uint64(byt)
	}
	// Sign-extend if the top bit of the narrow field is set.
	topByte, _ := s.At(n - 1)
	if topByte&0x80 != 0 {
		for shift := n; shift < 8; shift++ {
			v |= 0xFF << (8 * shift)
		}
	}
	return int64(v), true
}

// Parse walks the entire run list and returns the extents in VCN order. It
// enforces that the sum of cluster counts equals wantClusters when
// wantClusters >= 0; a mismatch is a parse failure (invariant 3, §3).
func Parse(data block.Block, wantClusters int64) ([]Run, error) {
	var out []Run
	var total uint64
	Walk(data, func(lcn, clusters uint64, sparse bool) bool {
		out = append(out, Run{LCN: lcn, Clusters: clusters, Sparse: sparse})
		total += clusters
		return true
	})
	if wantClusters >= 0 && total != uint64(wantClusters) {
		return nil, fmt.Errorf("runs: parsed cluster count %d does not match required %d", total, wantClusters)
	}
	return out, nil
}

// SectorExtent is one run materialized to sector granularity.
type SectorExtent struct {
	StartSector uint64
	Sectors     uint64
	Sparse      bool
}

// ToSectorMap converts a cluster-granularity run list to a sector map, given
// the volume's sectors-per-cluster geometry constant.
func ToSectorMap(rs []Run, sectorsPerCluster uint64) []SectorExtent {
	out := make([]SectorExtent, 0, len(rs))
	for _, r := range rs {
		out = append(out, SectorExtent{
			StartSector: r.LCN * sectorsPerCluster,
			Sectors:     r.Clusters * sectorsPerCluster,
			Sparse:      r.Sparse,
		})
	}
	return out
}

// VSNToLSN returns the subset of sector extents in m covering n sectors
// starting at virtual sector vsn. It fails if vsn+n runs past the end of the
// map (§4.8).
func VSNToLSN(m []SectorExtent, vsn uint64, n uint64) ([]SectorExtent, error) {
	if n == 0 {
		return nil, nil
	}
	var out []SectorExtent
	var cur uint64 // running VSN at the start of the extent being examined
	remaining := n
	started := false
	for _, ext := range m {
		extEnd := cur + ext.Sectors
		if !started {
			if vsn >= extEnd {
				cur = extEnd
				continue
			}
			started = true
			skip := vsn - cur
			avail := ext.Sectors - skip
			take := avail
			if take > remaining {
				take = remaining
			}
			out = append(out, SectorExtent{
				StartSector: ext.StartSector + skip,
				Sectors:     take,
				Sparse:      ext.Sparse,
			})
			remaining -= take
		} else {
			take := ext.Sectors
			if take > remaining {
				take = remaining
			}
			out = append(out, SectorExtent{
				StartSector: ext.StartSector,
				Sectors:     take,
				Sparse:      ext.Sparse,
			})
			remaining -= take
		}
		cur = extEnd
		if remaining == 0 {
			break
		}
	}
	if remaining != 0 {
		return nil, fmt.Errorf("runs: requested %d sectors at vsn %d exceeds mapped extents", n, vsn)
	}
	return out, nil
}
