package graphgrove

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/leoliu49/graphgrove/vector"
)

// serializeMagic tags the flat buffer format so Deserialize can fail fast
// on unrelated input instead of misinterpreting it.
const serializeMagic = uint32(0x67726f76) // "grov"

// Serialize encodes the tree as a flat buffer: a header followed by a
// single pre-order stream of node records, each carrying its own child
// count so Deserialize can rebuild the tree with one recursive pass. The
// format is little-endian throughout. The header carries dim and base, so
// Deserialize needs neither; the caller must pass WithCompression to
// Deserialize exactly when the serialized tree was built with it.
func (t *Tree) Serialize() (out []byte, err error) {
	start := time.Now()
	defer func() {
		t.metrics.RecordSerialize("serialize", time.Since(start), len(out), err)
		t.logger.LogSerialize("serialize", len(out), err)
	}()

	t.globalLock.RLock()
	defer t.globalLock.RUnlock()

	var buf bytes.Buffer

	binary.Write(&buf, binary.LittleEndian, serializeMagic)
	binary.Write(&buf, binary.LittleEndian, uint32(t.dim))
	binary.Write(&buf, binary.LittleEndian, t.base)
	binary.Write(&buf, binary.LittleEndian, t.minScale.Load())
	binary.Write(&buf, binary.LittleEndian, t.maxScale.Load())
	binary.Write(&buf, binary.LittleEndian, t.n.Load())

	writeNode(&buf, t.root)

	if !t.opts.compress {
		out = buf.Bytes()
		return out, nil
	}

	enc, encErr := zstd.NewWriter(nil)
	if encErr != nil {
		return nil, encErr
	}
	defer enc.Close()
	out = enc.EncodeAll(buf.Bytes(), nil)
	return out, nil
}

func writeNode(w *bytes.Buffer, n *Node) {
	if n == nil {
		binary.Write(w, binary.LittleEndian, int32(-1)) // absent-root sentinel
		return
	}
	binary.Write(w, binary.LittleEndian, int32(0))
	for _, v := range n.point {
		binary.Write(w, binary.LittleEndian, v)
	}
	binary.Write(w, binary.LittleEndian, int64(n.level))
	binary.Write(w, binary.LittleEndian, n.uid)
	binary.Write(w, binary.LittleEndian, uint32(len(n.extProp)))
	w.Write(n.extProp)

	children := n.snapshotChildren()
	binary.Write(w, binary.LittleEndian, uint32(len(children)))
	for _, c := range children {
		writeNode(w, c)
	}
}

// Deserialize reconstructs a Tree from a buffer produced by Serialize. The
// result shares no state with the tree that was serialized.
func Deserialize(buf []byte, optFns ...Option) (tree *Tree, err error) {
	start := time.Now()
	n := 0
	opts := applyOptions(optFns)
	defer func() {
		opts.metricsCollector.RecordSerialize("deserialize", time.Since(start), n, err)
	}()

	if opts.compress {
		dec, decErr := zstd.NewReader(nil)
		if decErr != nil {
			return nil, decErr
		}
		defer dec.Close()
		buf, err = dec.DecodeAll(buf, nil)
		if err != nil {
			return nil, &ErrCorruptBuffer{Reason: err.Error()}
		}
	}

	r := bytes.NewReader(buf)

	var magic uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil || magic != serializeMagic {
		return nil, &ErrCorruptBuffer{Reason: "bad magic"}
	}

	var dim32 uint32
	binary.Read(r, binary.LittleEndian, &dim32)
	dim := int(dim32)

	var base float64
	binary.Read(r, binary.LittleEndian, &base)
	var minScale, maxScale, count int64
	binary.Read(r, binary.LittleEndian, &minScale)
	binary.Read(r, binary.LittleEndian, &maxScale)
	binary.Read(r, binary.LittleEndian, &count)

	opts.base = base
	tree = newTree(dim, opts)

	root, err := readNode(r, dim)
	if err != nil {
		return nil, err
	}

	tree.root = root
	tree.minScale.Store(minScale)
	tree.maxScale.Store(maxScale)
	tree.n.Store(count)

	var nextID uint64
	registerSubtree(tree, root, &nextID)
	tree.nextID.Store(nextID)
	n = int(count)

	if err := tree.CalcMaxDist(); err != nil {
		return nil, err
	}

	return tree, nil
}

func readNode(r *bytes.Reader, dim int) (*Node, error) {
	var tag int32
	if err := binary.Read(r, binary.LittleEndian, &tag); err != nil {
		return nil, &ErrCorruptBuffer{Reason: fmt.Sprintf("tag: %v", err)}
	}
	if tag < 0 {
		return nil, nil
	}

	p := make(vector.Point, dim)
	for i := range p {
		if err := binary.Read(r, binary.LittleEndian, &p[i]); err != nil {
			return nil, &ErrCorruptBuffer{Reason: fmt.Sprintf("point: %v", err)}
		}
	}
	var level64 int64
	if err := binary.Read(r, binary.LittleEndian, &level64); err != nil {
		return nil, &ErrCorruptBuffer{Reason: fmt.Sprintf("level: %v", err)}
	}
	var uid UID
	if err := binary.Read(r, binary.LittleEndian, &uid); err != nil {
		return nil, &ErrCorruptBuffer{Reason: fmt.Sprintf("uid: %v", err)}
	}
	var extLen uint32
	if err := binary.Read(r, binary.LittleEndian, &extLen); err != nil {
		return nil, &ErrCorruptBuffer{Reason: fmt.Sprintf("extLen: %v", err)}
	}
	var extProp []byte
	if extLen > 0 {
		extProp = make([]byte, extLen)
		if _, err := io.ReadFull(r, extProp); err != nil {
			return nil, &ErrCorruptBuffer{Reason: fmt.Sprintf("extProp: %v", err)}
		}
	}

	var childCount uint32
	if err := binary.Read(r, binary.LittleEndian, &childCount); err != nil {
		return nil, &ErrCorruptBuffer{Reason: fmt.Sprintf("childCount: %v", err)}
	}

	n := &Node{point: p, level: int(level64), uid: uid, extProp: extProp}
	n.children = make([]*Node, 0, childCount)
	for i := uint32(0); i < childCount; i++ {
		c, err := readNode(r, dim)
		if err != nil {
			return nil, err
		}
		n.children = append(n.children, c)
	}
	return n, nil
}

func registerSubtree(t *Tree, n *Node, nextID *uint64) {
	if n == nil {
		return
	}
	*nextID++
	n.id = *nextID
	t.registerNode(n)
	for _, c := range n.children {
		registerSubtree(t, c, nextID)
	}
}

// MsgSize returns the size in bytes Serialize would currently produce,
// without compression, for capacity planning.
func (t *Tree) MsgSize() int {
	t.globalLock.RLock()
	defer t.globalLock.RUnlock()

	size := 4 + 4 + 8 + 8 + 8 + 8 // magic, dim, base, minScale, maxScale, n
	var walk func(n *Node) int
	walk = func(n *Node) int {
		if n == nil {
			return 4
		}
		s := 4 + len(n.point)*8 + 8 + 8 + 4 + len(n.extProp) + 4
		for _, c := range n.snapshotChildren() {
			s += walk(c)
		}
		return s
	}
	return size + walk(t.root)
}
