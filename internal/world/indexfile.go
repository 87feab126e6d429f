// Package world implements the in-memory entity registries and load/save
// orchestration: two Serial-keyed maps (mobiles, items) plus a
// GuildID-keyed guilds map, loaded from and saved to three (idx, tdb,
// bin) triplets of on-disk format, with type reconstruction on load
// driven by a registry of constructors keyed by type name.
package world

import (
	"encoding/binary"
	"fmt"
	"os"
)

// indexRecord mirrors one entry of a .idx file: (typeId, serial,
// position, length), all as read; typeId indexes into the accompanying
// .tdb's dense FQN table (guild indexes always write typeId 0 and have
// no .tdb).
type indexRecord struct {
	typeID   uint32
	serial   uint32
	position int64
	length   uint32
}

// readIndexFile parses a little-endian .idx file: u32 count, then count
// records of (u32 typeId, u32 serial, i64 position, u32 length).
func readIndexFile(path string) ([]indexRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("world: opening index %s: %w", path, err)
	}
	defer f.Close()

	var count uint32
	if err := binary.Read(f, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("world: reading index count from %s: %w", path, err)
	}

	records := make([]indexRecord, count)
	for i := range records {
		var rec struct {
			TypeID   uint32
			Serial   uint32
			Position int64
			Length   uint32
		}
		if err := binary.Read(f, binary.LittleEndian, &rec); err != nil {
			return nil, fmt.Errorf("world: reading index record %d from %s: %w", i, path, err)
		}
		records[i] = indexRecord{typeID: rec.TypeID, serial: rec.Serial, position: rec.Position, length: rec.Length}
	}
	return records, nil
}

// writeIndexFile writes records in the same little-endian layout.
func writeIndexFile(path string, records []indexRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("world: creating index %s: %w", path, err)
	}
	defer f.Close()

	if err := binary.Write(f, binary.LittleEndian, uint32(len(records))); err != nil {
		return fmt.Errorf("world: writing index count to %s: %w", path, err)
	}
	for _, rec := range records {
		row := struct {
			TypeID   uint32
			Serial   uint32
			Position int64
			Length   uint32
		}{rec.typeID, rec.serial, rec.position, rec.length}
		if err := binary.Write(f, binary.LittleEndian, row); err != nil {
			return fmt.Errorf("world: writing index record to %s: %w", path, err)
		}
	}
	return nil
}

// readTypeDB parses a little-endian .tdb file: u32 type count, then that
// many length-prefixed (u32 length + bytes) FQN strings, dense-indexed by
// their position in the file (the dense typeId used by .idx records).
func readTypeDB(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("world: opening type db %s: %w", path, err)
	}
	defer f.Close()

	var count uint32
	if err := binary.Read(f, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("world: reading type count from %s: %w", path, err)
	}

	fqns := make([]string, count)
	for i := range fqns {
		var strLen uint32
		if err := binary.Read(f, binary.LittleEndian, &strLen); err != nil {
			return nil, fmt.Errorf("world: reading type name length from %s: %w", path, err)
		}
		buf := make([]byte, strLen)
		if _, err := f.Read(buf); err != nil {
			return nil, fmt.Errorf("world: reading type name from %s: %w", path, err)
		}
		fqns[i] = string(buf)
	}
	return fqns, nil
}

// writeTypeDB writes fqns in the same dense, length-prefixed layout.
func writeTypeDB(path string, fqns []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("world: creating type db %s: %w", path, err)
	}
	defer f.Close()

	if err := binary.Write(f, binary.LittleEndian, uint32(len(fqns))); err != nil {
		return fmt.Errorf("world: writing type count to %s: %w", path, err)
	}
	for _, fqn := range fqns {
		if err := binary.Write(f, binary.LittleEndian, uint32(len(fqn))); err != nil {
			return fmt.Errorf("world: writing type name length to %s: %w", path, err)
		}
		if _, err := f.Write([]byte(fqn)); err != nil {
			return fmt.Errorf("world: writing type name to %s: %w", path, err)
		}
	}
	return nil
}
