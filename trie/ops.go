package trie

import (
	"github.com/luxfi/hybridvm/kv"
	"github.com/luxfi/hybridvm/types"
)

func writeOp(h types.B256, value []byte) kv.WriteOp {
	return kv.WriteOp{CF: kv.CFTrie, Key: h[:], Value: value}
}

func commonPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

func (t *Trie) resolve(n node) (node, error) {
	if h, ok := n.(hashNode); ok {
		return t.resolveHash(types.B256(h))
	}
	return n, nil
}

func (t *Trie) get(n node, path []byte) ([]byte, bool, error) {
	if n == nil {
		return nil, false, nil
	}
	n, err := t.resolve(n)
	if err != nil {
		return nil, false, err
	}
	switch v := n.(type) {
	case *leafNode:
		if equalBytes(v.path, path) {
			return v.value, true, nil
		}
		return nil, false, nil
	case *extensionNode:
		if len(path) < len(v.path) || !equalBytes(v.path, path[:len(v.path)]) {
			return nil, false, nil
		}
		return t.get(v.child, path[len(v.path):])
	case *branchNode:
		if len(path) == 0 {
			return v.value, v.value != nil, nil
		}
		return t.get(v.children[path[0]], path[1:])
	default:
		return nil, false, nil
	}
}

// proof walks to path, appending every node's encoding along the way, in
// root-to-leaf order. found reports whether a value exists at path.
func (t *Trie) proof(n node, path []byte, nodes *[][]byte) (value []byte, found bool, err error) {
	if n == nil {
		return nil, false, nil
	}
	n, err = t.resolve(n)
	if err != nil {
		return nil, false, err
	}
	enc, err := encodeNode(n)
	if err != nil {
		return nil, false, err
	}
	*nodes = append(*nodes, enc)

	switch v := n.(type) {
	case *leafNode:
		if equalBytes(v.path, path) {
			return v.value, true, nil
		}
		return nil, false, nil
	case *extensionNode:
		if len(path) < len(v.path) || !equalBytes(v.path, path[:len(v.path)]) {
			return nil, false, nil
		}
		return t.proof(v.child, path[len(v.path):], nodes)
	case *branchNode:
		if len(path) == 0 {
			return v.value, v.value != nil, nil
		}
		return t.proof(v.children[path[0]], path[1:], nodes)
	default:
		return nil, false, nil
	}
}

func equalBytes(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// insert returns the new subtree root after writing value at path.
func (t *Trie) insert(n node, path []byte, value []byte) (node, error) {
	if n == nil {
		return &leafNode{path: append([]byte(nil), path...), value: value}, nil
	}
	n, err := t.resolve(n)
	if err != nil {
		return nil, err
	}
	switch v := n.(type) {
	case *leafNode:
		if equalBytes(v.path, path) {
			return &leafNode{path: v.path, value: value}, nil
		}
		return t.splitAt(v.path, v.value, path, value)
	case *extensionNode:
		cp := commonPrefixLen(v.path, path)
		if cp == len(v.path) {
			newChild, err := t.insert(v.child, path[cp:], value)
			if err != nil {
				return nil, err
			}
			return &extensionNode{path: v.path, child: newChild}, nil
		}
		// Split the extension at the common prefix.
		var branch branchNode
		remaining := v.path[cp:]
		if len(remaining) == 1 {
			branch.children[remaining[0]] = v.child
		} else {
			branch.children[remaining[0]] = &extensionNode{path: remaining[1:], child: v.child}
		}
		if cp == len(path) {
			branch.value = value
		} else {
			rest := path[cp:]
			leaf := &leafNode{path: rest[1:], value: value}
			branch.children[rest[0]] = leaf
		}
		if cp == 0 {
			return &branch, nil
		}
		return &extensionNode{path: v.path[:cp], child: &branch}, nil
	case *branchNode:
		nb := *v
		if len(path) == 0 {
			nb.value = value
			return &nb, nil
		}
		newChild, err := t.insert(v.children[path[0]], path[1:], value)
		if err != nil {
			return nil, err
		}
		nb.children[path[0]] = newChild
		return &nb, nil
	default:
		panic("trie: insert into unknown node type")
	}
}

// splitAt builds the minimal subtree holding two distinct (path, value)
// pairs that previously lived at the same leaf.
func (t *Trie) splitAt(pathA, valueA, pathB, valueB []byte) (node, error) {
	cp := commonPrefixLen(pathA, pathB)
	var branch branchNode

	setBranchEntry := func(path, value []byte) {
		if len(path) == 0 {
			branch.value = value
			return
		}
		branch.children[path[0]] = &leafNode{path: path[1:], value: value}
	}
	setBranchEntry(pathA[cp:], valueA)
	setBranchEntry(pathB[cp:], valueB)

	if cp == 0 {
		return &branch, nil
	}
	return &extensionNode{path: pathA[:cp], child: &branch}, nil
}

// hashOf computes (without persisting) the hash of a resolved or dirty
// subtree, resolving children as needed.
func (t *Trie) hashOf(n node) (types.B256, error) {
	switch v := n.(type) {
	case hashNode:
		return types.B256(v), nil
	case *leafNode:
		enc, err := encodeNode(v)
		if err != nil {
			return types.B256{}, err
		}
		return types.Keccak256(enc), nil
	case *extensionNode:
		childHash, err := t.hashOf(v.child)
		if err != nil {
			return types.B256{}, err
		}
		enc, err := encodeNode(&extensionNode{path: v.path, child: hashNode(childHash)})
		if err != nil {
			return types.B256{}, err
		}
		return types.Keccak256(enc), nil
	case *branchNode:
		var resolved branchNode
		resolved.value = v.value
		for i, c := range v.children {
			if c == nil {
				continue
			}
			h, err := t.hashOf(c)
			if err != nil {
				return types.B256{}, err
			}
			resolved.children[i] = hashNode(h)
		}
		enc, err := encodeNode(&resolved)
		if err != nil {
			return types.B256{}, err
		}
		return types.Keccak256(enc), nil
	default:
		return types.B256{}, ErrMissingNode
	}
}

// commit recursively persists every dirty (non-hashNode) node reachable
// from n, appending WriteOps, and returns n's hash.
func (t *Trie) commit(n node, ops *[]kv.WriteOp) (types.B256, error) {
	switch v := n.(type) {
	case hashNode:
		return types.B256(v), nil
	case *leafNode:
		enc, err := encodeNode(v)
		if err != nil {
			return types.B256{}, err
		}
		h := types.Keccak256(enc)
		*ops = append(*ops, writeOp(h, enc))
		return h, nil
	case *extensionNode:
		childHash, err := t.commit(v.child, ops)
		if err != nil {
			return types.B256{}, err
		}
		persisted := &extensionNode{path: v.path, child: hashNode(childHash)}
		enc, err := encodeNode(persisted)
		if err != nil {
			return types.B256{}, err
		}
		h := types.Keccak256(enc)
		*ops = append(*ops, writeOp(h, enc))
		return h, nil
	case *branchNode:
		var persisted branchNode
		persisted.value = v.value
		for i, c := range v.children {
			if c == nil {
				continue
			}
			h, err := t.commit(c, ops)
			if err != nil {
				return types.B256{}, err
			}
			persisted.children[i] = hashNode(h)
		}
		enc, err := encodeNode(&persisted)
		if err != nil {
			return types.B256{}, err
		}
		h := types.Keccak256(enc)
		*ops = append(*ops, writeOp(h, enc))
		return h, nil
	default:
		return types.B256{}, ErrMissingNode
	}
}
