// Package snapshot exports and imports live world state as compressed
// snapshot files, so a long-lived world survives server restarts.
//
// File layout: one JSON header line (for quick inspection with zstdcat)
// followed by a gob-encoded body, the whole stream zstd-compressed.
package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"

	"github.com/hupe1980/aicraft/core"
)

// Version is the current snapshot format version.
const Version = 1

// Header identifies a snapshot file without decoding the body.
type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
}

// WorldV1 is the version 1 snapshot body. Cell maps are flattened into
// sorted slices so files are byte-stable for identical state.
type WorldV1 struct {
	Header Header

	Width     int
	Height    int
	Obstacles []core.Position
	Items     []core.PlacedItem
	Agent     core.Position
}

// Capture converts a live snapshot into its file representation.
func Capture(snap core.Snapshot) WorldV1 {
	obstacles := make([]core.Position, 0, len(snap.Obstacles))
	for p := range snap.Obstacles {
		obstacles = append(obstacles, p)
	}
	sortPositions(obstacles)

	items := make([]core.PlacedItem, 0, len(snap.Items))
	for p, kind := range snap.Items {
		items = append(items, core.PlacedItem{Pos: p, Kind: kind})
	}
	sort.Slice(items, func(i, j int) bool {
		return lessPosition(items[i].Pos, items[j].Pos)
	})

	return WorldV1{
		Header:    Header{Version: Version, WorldID: snap.ID},
		Width:     snap.Width,
		Height:    snap.Height,
		Obstacles: obstacles,
		Items:     items,
		Agent:     snap.Agent,
	}
}

// Restore converts a file representation back into a live snapshot.
func Restore(w WorldV1) core.Snapshot {
	snap := core.Snapshot{
		ID:        w.Header.WorldID,
		Width:     w.Width,
		Height:    w.Height,
		Obstacles: make(map[core.Position]struct{}, len(w.Obstacles)),
		Items:     make(map[core.Position]string, len(w.Items)),
		Agent:     w.Agent,
	}
	for _, p := range w.Obstacles {
		snap.Obstacles[p] = struct{}{}
	}
	for _, it := range w.Items {
		snap.Items[it.Pos] = it.Kind
	}
	return snap
}

// Write stores a world snapshot at path, creating parent directories.
func Write(path string, snap core.Snapshot) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriter(enc)
	defer bw.Flush()

	body := Capture(snap)
	hb, _ := json.Marshal(body.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&body); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

// Read loads a world snapshot from path.
func Read(path string) (core.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return core.Snapshot{}, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return core.Snapshot{}, err
	}
	defer dec.Close()

	br := bufio.NewReader(dec)

	// The header line duplicates what the gob body carries; skip it.
	if _, err := br.ReadBytes('\n'); err != nil {
		return core.Snapshot{}, fmt.Errorf("read header: %w", err)
	}

	var body WorldV1
	if err := gob.NewDecoder(br).Decode(&body); err != nil {
		return core.Snapshot{}, fmt.Errorf("gob decode: %w", err)
	}
	if body.Header.Version != Version {
		return core.Snapshot{}, fmt.Errorf("unsupported snapshot version %d", body.Header.Version)
	}
	return Restore(body), nil
}

// ReadHeader decodes only the header line of a snapshot file.
func ReadHeader(path string) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return Header{}, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return Header{}, fmt.Errorf("read header: %w", err)
	}
	var h Header
	if err := json.Unmarshal(line, &h); err != nil {
		return Header{}, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}

func sortPositions(ps []core.Position) {
	sort.Slice(ps, func(i, j int) bool { return lessPosition(ps[i], ps[j]) })
}

func lessPosition(a, b core.Position) bool {
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.X < b.X
}
