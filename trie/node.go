package trie

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/luxfi/hybridvm/types"
)

// node is one of leafNode, extensionNode, branchNode, or a hashNode (an
// unresolved pointer to a node persisted under that hash).
type node interface{}

// leafNode terminates a path with a value.
type leafNode struct {
	path  []byte // remaining nibbles
	value []byte
}

// extensionNode shares a path prefix before branching.
type extensionNode struct {
	path  []byte
	child node
}

// branchNode has up to 16 nibble-indexed children plus an optional value
// for a key that terminates exactly at the branch.
type branchNode struct {
	children [16]node
	value    []byte
}

// hashNode is a reference to a node by its Keccak256 hash; it is resolved
// from the store on demand.
type hashNode types.B256

// nibbles splits a byte key into its nibble sequence (two nibbles per byte,
// high nibble first), the path alphabet every trie node operates over.
func newNibbles(key []byte) []byte {
	out := make([]byte, len(key)*2)
	for i, b := range key {
		out[i*2] = b >> 4
		out[i*2+1] = b & 0x0f
	}
	return out
}

func nibblesToBytes(nibbles []byte) []byte {
	if len(nibbles)%2 != 0 {
		panic("trie: odd nibble count cannot convert to bytes")
	}
	out := make([]byte, len(nibbles)/2)
	for i := range out {
		out[i] = nibbles[i*2]<<4 | nibbles[i*2+1]
	}
	return out
}

// hexPrefix applies Ethereum's hex-prefix encoding: a leading nibble
// encodes parity and node-type (odd-length + leaf flags), so leaf and
// extension nodes can share one RLP encoding shape distinguished only by
// this flag nibble.
func hexPrefix(nibbles []byte, isLeaf bool) []byte {
	flag := 0
	if len(nibbles)%2 == 1 {
		flag = 1
	}
	if isLeaf {
		flag += 2
	}
	padded := nibbles
	if flag%2 == 1 {
		padded = append([]byte{byte(flag)}, nibbles...)
	} else {
		padded = append([]byte{byte(flag), 0}, nibbles...)
	}
	return nibblesToBytes(padded)
}

func hexPrefixDecode(b []byte) (nibbles []byte, isLeaf bool) {
	n := newNibbles(b)
	flag := n[0]
	isLeaf = flag >= 2
	odd := flag%2 == 1
	if odd {
		return n[1:], isLeaf
	}
	return n[2:], isLeaf
}

// rawNode is the RLP-serializable shape for any of the three node kinds,
// tagged by Kind so decodeNode can dispatch without external type hints.
type rawNode struct {
	Kind     uint8
	Path     []byte        `rlp:"optional"`
	Value    []byte        `rlp:"optional"`
	Children [][]byte      `rlp:"optional"` // 16 entries, each empty or a 32-byte hash
}

const (
	kindLeaf      = 0
	kindExtension = 1
	kindBranch    = 2
)

func encodeNode(n node) ([]byte, error) {
	switch v := n.(type) {
	case *leafNode:
		return rlp.EncodeToBytes(&rawNode{Kind: kindLeaf, Path: hexPrefix(v.path, true), Value: v.value})
	case *extensionNode:
		childHash, ok := v.child.(hashNode)
		if !ok {
			panic("trie: encodeNode called with unresolved extension child")
		}
		return rlp.EncodeToBytes(&rawNode{Kind: kindExtension, Path: hexPrefix(v.path, false), Value: types.B256(childHash).Bytes()})
	case *branchNode:
		children := make([][]byte, 16)
		for i, c := range v.children {
			if c == nil {
				children[i] = nil
				continue
			}
			h, ok := c.(hashNode)
			if !ok {
				panic("trie: encodeNode called with unresolved branch child")
			}
			children[i] = types.B256(h).Bytes()
		}
		return rlp.EncodeToBytes(&rawNode{Kind: kindBranch, Value: v.value, Children: children})
	default:
		panic("trie: cannot encode unresolved node")
	}
}

func decodeNode(raw []byte) (node, error) {
	var rn rawNode
	if err := rlp.DecodeBytes(raw, &rn); err != nil {
		return nil, err
	}
	switch rn.Kind {
	case kindLeaf:
		path, _ := hexPrefixDecode(rn.Path)
		return &leafNode{path: path, value: rn.Value}, nil
	case kindExtension:
		path, _ := hexPrefixDecode(rn.Path)
		var h types.B256
		copy(h[:], rn.Value)
		return &extensionNode{path: path, child: hashNode(h)}, nil
	case kindBranch:
		var b branchNode
		b.value = rn.Value
		for i, c := range rn.Children {
			if len(c) == 0 {
				continue
			}
			var h types.B256
			copy(h[:], c)
			b.children[i] = hashNode(h)
		}
		return &b, nil
	default:
		panic("trie: unknown node kind in store")
	}
}
