package world

import (
	"fmt"

	"github.com/udisondev/la2go/internal/bufpool"
	"github.com/udisondev/la2go/internal/entity"
	"github.com/udisondev/la2go/internal/fileio"
	"github.com/udisondev/la2go/internal/netio"
)

// WriteTriplet serializes entities to dir/<name>.{idx,tdb,bin} (guilds
// pass withTypes=false and get no .tdb). pagePool and
// pageSize/concurrency parameterize the underlying FileQueue, letting a
// SaveStrategy choose synchronous (concurrency 0) or background-write
// (concurrency > 0) disk I/O for this triplet.
func WriteTriplet(dir, name string, pagePool *bufpool.Pool, pageSize, concurrency int, reg *entity.Registry, entities []entity.Entity) error {
	return writeTriplet(dir, name, pagePool, pageSize, concurrency, reg, entities, true)
}

// WriteGuildTriplet is WriteTriplet for the untyped guild format (no
// .tdb, index typeId is always 0).
func WriteGuildTriplet(dir string, pagePool *bufpool.Pool, pageSize, concurrency int, guilds []entity.Entity) error {
	return writeTriplet(dir, "Guilds", pagePool, pageSize, concurrency, nil, guilds, false)
}

func writeTriplet(dir, name string, pagePool *bufpool.Pool, pageSize, concurrency int, reg *entity.Registry, entities []entity.Entity, withTypes bool) error {
	bodies := SerializeEntities(entities)
	return WriteTripletBodies(dir, name, pagePool, pageSize, concurrency, reg, entities, bodies, withTypes)
}

// SerializeEntities serializes each entity into its own body buffer,
// independent of disk I/O. The slice is index-aligned with entities, so a
// SaveStrategy may split entities into chunks, serialize each chunk on its
// own goroutine, and hand the reassembled, order-preserving bodies slice
// to WriteTripletBodies — the disk layout is identical regardless of how
// serialization itself was parallelized.
func SerializeEntities(entities []entity.Entity) [][]byte {
	bodies := make([][]byte, len(entities))
	for i, e := range entities {
		w := netio.NewWriter(64)
		e.Serialize(w)
		bodies[i] = w.Bytes()
	}
	return bodies
}

// WriteTripletBodies commits pre-serialized bodies (index-aligned with
// entities, see SerializeEntities) to dir/<name>.{idx,tdb,bin} in slice
// order. Splitting this from serialization is what lets Parallel/Dynamic
// fan serialization out across workers while the commit itself stays a
// single ordered pass, so on-disk bytes are identical to the Standard
// strategy's given the same entities slice.
func WriteTripletBodies(dir, name string, pagePool *bufpool.Pool, pageSize, concurrency int, reg *entity.Registry, entities []entity.Entity, bodies [][]byte, withTypes bool) error {
	sink, err := openTripletBin(dir, name)
	if err != nil {
		return err
	}
	defer sink.Close()

	queue := fileio.NewFileQueue(sink, pagePool, pageSize, concurrency)
	bodyWriter := fileio.NewSequentialFileWriter(queue)

	records := make([]indexRecord, 0, len(entities))
	var fqns []string
	typeRefToDense := map[int32]uint32{}

	for i, e := range entities {
		var denseID uint32
		if withTypes {
			fqn, ok := reg.FqnFor(e.TypeRef())
			if !ok {
				return fmt.Errorf("world: save: no registered FQN for typeRef %d (serial %s)", e.TypeRef(), e.Serial())
			}
			id, seen := typeRefToDense[e.TypeRef()]
			if !seen {
				id = uint32(len(fqns))
				fqns = append(fqns, fqn)
				typeRefToDense[e.TypeRef()] = id
			}
			denseID = id
		}

		body := bodies[i]
		pos := bodyWriter.Write(body)
		records = append(records, indexRecord{
			typeID:   denseID,
			serial:   uint32(e.Serial()),
			position: pos,
			length:   uint32(len(body)),
		})
	}

	if err := bodyWriter.Flush(); err != nil {
		return fmt.Errorf("world: save: flushing %s.bin: %w", name, err)
	}

	if withTypes {
		if err := writeTypeDB(tripletPath(dir, name, "tdb"), fqns); err != nil {
			return err
		}
	}
	return writeIndexFile(tripletPath(dir, name, "idx"), records)
}

func tripletPath(dir, name, ext string) string { return dir + "/" + name + "." + ext }

// MobilesToEntities, ItemsToEntities and GuildsToEntities widen a
// Snapshot's typed slices into []entity.Entity for WriteTriplet.
func MobilesToEntities(mobiles []*entity.Mobile) []entity.Entity {
	out := make([]entity.Entity, len(mobiles))
	for i, m := range mobiles {
		out[i] = m
	}
	return out
}

func ItemsToEntities(items []*entity.Item) []entity.Entity {
	out := make([]entity.Entity, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out
}

func GuildsToEntities(guilds []*entity.Guild) []entity.Entity {
	out := make([]entity.Entity, len(guilds))
	for i, g := range guilds {
		out[i] = g
	}
	return out
}
