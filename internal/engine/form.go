package engine

import (
	"sort"
	"strconv"
	"strings"
)

// SplitFormKey splits flattened HTML form keys into path segments.
//
//	"tracks[0][title]" -> ["tracks", "0", "title"]
//	"tracks[0].title"  -> ["tracks", "0", "title"]
//	"tags[]"           -> ["tags", ""]
func SplitFormKey(key string) []string {
	var segs []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			segs = append(segs, cur.String())
			cur.Reset()
		}
	}
	for i := 0; i < len(key); i++ {
		switch c := key[i]; c {
		case '.':
			flush()
		case '[':
			flush()
			end := strings.IndexByte(key[i:], ']')
			if end < 0 {
				cur.WriteString(key[i:])
				i = len(key)
				continue
			}
			segs = append(segs, key[i+1:i+end])
			i += end
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return segs
}

type formNode struct {
	leaf     any
	hasLeaf  bool
	children map[string]*formNode
	appended []any
}

func (n *formNode) child(seg string) *formNode {
	if n.children == nil {
		n.children = map[string]*formNode{}
	}
	c, ok := n.children[seg]
	if !ok {
		c = &formNode{}
		n.children[seg] = c
	}
	return c
}

// ExpandForm rebuilds nested data from flattened form values. Segments that are all
// non-negative integers become lists ordered by index; a key with several values becomes a
// list of strings.
func ExpandForm(values map[string][]string) map[string]any {
	root := &formNode{}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		vals := values[k]
		segs := SplitFormKey(k)
		if len(segs) == 0 {
			continue
		}
		n := root
		for i, seg := range segs {
			last := i == len(segs)-1
			if last && seg == "" {
				for _, v := range vals {
					n.appended = append(n.appended, v)
				}
				break
			}
			n = n.child(seg)
			if !last {
				continue
			}
			switch len(vals) {
			case 0:
				n.leaf, n.hasLeaf = "", true
			case 1:
				n.leaf, n.hasLeaf = vals[0], true
			default:
				list := make([]any, len(vals))
				for i, v := range vals {
					list[i] = v
				}
				n.leaf, n.hasLeaf = list, true
			}
		}
	}
	out, _ := root.build().(map[string]any)
	if out == nil {
		out = map[string]any{}
	}
	return out
}

func (n *formNode) build() any {
	if len(n.children) == 0 {
		if n.appended != nil {
			return n.appended
		}
		if n.hasLeaf {
			return n.leaf
		}
		return map[string]any{}
	}
	if idx, ok := numericKeys(n.children); ok {
		list := make([]any, 0, len(idx)+len(n.appended))
		for _, i := range idx {
			list = append(list, n.children[strconv.Itoa(i)].build())
		}
		return append(list, n.appended...)
	}
	m := make(map[string]any, len(n.children))
	for k, c := range n.children {
		m[k] = c.build()
	}
	return m
}

func numericKeys(children map[string]*formNode) ([]int, bool) {
	idx := make([]int, 0, len(children))
	for k := range children {
		i, err := strconv.Atoi(k)
		if err != nil || i < 0 || strconv.Itoa(i) != k {
			return nil, false
		}
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx, true
}
