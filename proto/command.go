package proto

import "fmt"

// Op is the 4-bit opcode of a command word.
type Op uint8

// Opcodes understood by the controller. The values are part of the wire
// contract.
const (
	OpMount       Op = 1
	OpUnmount     Op = 2
	OpSeekTrack   Op = 3
	OpReadSector  Op = 4
	OpWriteSector Op = 5
)

func (o Op) String() string {
	switch o {
	case OpMount:
		return "MOUNT"
	case OpUnmount:
		return "UNMOUNT"
	case OpSeekTrack:
		return "SEEK-TRACK"
	case OpReadSector:
		return "READ-SECTOR"
	case OpWriteSector:
		return "WRITE-SECTOR"
	default:
		return fmt.Sprintf("OP(%d)", uint8(o))
	}
}

// HasRequestPayload reports whether one sector follows the command word.
func (o Op) HasRequestPayload() bool {
	return o == OpWriteSector
}

// HasResponsePayload reports whether one sector follows the response word.
func (o Op) HasResponsePayload() bool {
	return o == OpReadSector
}

// Bit layout of a command word, most significant bit first:
//
//	63..60  opcode     (4 bits)
//	59..44  sector     (16 bits)
//	43..12  track      (32 bits)
//	11      return     (1 bit)
//	10..0   unused
const (
	opShift     = 60
	sectorShift = 44
	trackShift  = 12
	retShift    = 11

	opMask     = 1<<4 - 1
	sectorMask = 1<<16 - 1
	trackMask  = 1<<32 - 1
	retMask    = 1
)

// Command is the decoded form of a 64-bit command or response word.
type Command struct {
	Op     Op
	Sector uint16
	Track  uint32
	// Ret is the status flag. 0 means success.
	Ret uint8
}

// Encode packs the fields into a command word. Only the low bit of ret and
// the low four bits of op are kept.
func Encode(op Op, sector uint16, track uint32, ret uint8) uint64 {
	word := (uint64(op) & opMask) << opShift
	word |= uint64(sector) << sectorShift
	word |= uint64(track) << trackShift
	word |= (uint64(ret) & retMask) << retShift
	return word
}

// Decode unpacks every field of a command word.
func Decode(word uint64) Command {
	return Command{
		Op:     OpOf(word),
		Sector: SectorOf(word),
		Track:  TrackOf(word),
		Ret:    RetOf(word),
	}
}

// OpOf extracts the opcode field.
func OpOf(word uint64) Op {
	return Op((word >> opShift) & opMask)
}

// SectorOf extracts the sector field.
func SectorOf(word uint64) uint16 {
	return uint16((word >> sectorShift) & sectorMask)
}

// TrackOf extracts the track field.
func TrackOf(word uint64) uint32 {
	return uint32((word >> trackShift) & trackMask)
}

// RetOf extracts the return/status flag.
func RetOf(word uint64) uint8 {
	return uint8((word >> retShift) & retMask)
}

// Word packs c into a command word.
func (c Command) Word() uint64 {
	return Encode(c.Op, c.Sector, c.Track, c.Ret)
}

// Failed reports whether the status flag signals failure.
func (c Command) Failed() bool {
	return c.Ret != 0
}

func (c Command) String() string {
	return fmt.Sprintf("%s sct=%d trk=%d ret=%d", c.Op, c.Sector, c.Track, c.Ret)
}

// Mount builds a MOUNT request.
func Mount() Command { return Command{Op: OpMount} }

// Unmount builds an UNMOUNT request.
func Unmount() Command { return Command{Op: OpUnmount} }

// SeekTrack builds a SEEK-TRACK request to track.
func SeekTrack(track uint32) Command { return Command{Op: OpSeekTrack, Track: track} }

// ReadSector builds a READ-SECTOR request for sector on the current track.
func ReadSector(sector uint16) Command { return Command{Op: OpReadSector, Sector: sector} }

// WriteSector builds a WRITE-SECTOR request for sector on the current track.
func WriteSector(sector uint16) Command { return Command{Op: OpWriteSector, Sector: sector} }
