// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package macb

import (
	"strings"

	"github.com/platinasystems/fdt"
)

// Probed is one controller instance discovered in the flattened device
// tree: its register window, the board config its compatible string
// selected, and the PHY wiring.
type Probed struct {
	Name       string
	Compatible string
	Config     *Config // nil: default config, DMA width probed

	// First and (when present) second reg entries.  The second window
	// is the management shim some designs bolt on (GEMGXL).
	RegAddr  uint64
	RegSize  uint64
	ShimAddr uint64
	ShimSize uint64

	PhyAddr      int // -1: no phy-handle, search the bus
	PhyInterface Interface
	FixedLink    *FixedLink
	MacAddr      []byte // nil when the DT carries none
}

// ProbeTree walks a parsed device tree and returns every node whose
// compatible string the driver knows, with PHY handles resolved.
func ProbeTree(t *fdt.Tree) []Probed {
	if t.RootNode == nil {
		return nil
	}
	phandles := index_phandles(t)

	var found []Probed
	walk_nodes(t, t.RootNode, 2, 1, func(n *fdt.Node, acells, scells int) {
		compat, cfg, ok := match_compatible(t, n)
		if !ok {
			return
		}
		p := Probed{
			Name:       node_base_name(n.Name),
			Compatible: compat,
			Config:     cfg,
			PhyAddr:    -1,
		}

		regs := t.PropUint32Slice(n.Properties["reg"])
		p.RegAddr, p.RegSize, regs = take_reg(regs, acells, scells)
		p.ShimAddr, p.ShimSize, _ = take_reg(regs, acells, scells)

		if v, ok := n.Properties["phy-mode"]; ok {
			p.PhyInterface, _ = ParseInterface(t.PropString(v))
		}
		if v, ok := n.Properties["phy-handle"]; ok && len(v) >= 4 {
			if phy := phandles[t.PropUint32(v)]; phy != nil {
				if r, ok := phy.Properties["reg"]; ok && len(r) >= 4 {
					p.PhyAddr = int(t.PropUint32(r))
				}
			}
		}
		if fl := find_child(n, "fixed-link"); fl != nil {
			link := &FixedLink{}
			if v, ok := fl.Properties["speed"]; ok && len(v) >= 4 {
				link.SpeedMbps = int(t.PropUint32(v))
			}
			_, link.FullDuplex = fl.Properties["full-duplex"]
			p.FixedLink = link
		}
		for _, prop := range []string{"mac-address", "local-mac-address"} {
			if v, ok := n.Properties[prop]; ok && len(v) == 6 {
				p.MacAddr = v
				break
			}
		}

		found = append(found, p)
	})
	return found
}

// match_compatible returns the first compatible string of n the config
// table knows.  The property is a NUL separated list, most specific
// first.
func match_compatible(t *fdt.Tree, n *fdt.Node) (string, *Config, bool) {
	v, ok := n.Properties["compatible"]
	if !ok {
		return "", nil, false
	}
	for _, s := range t.PropStringSlice(v) {
		if cfg, ok := configs[s]; ok {
			return s, cfg, true
		}
	}
	return "", nil, false
}

// walk_nodes descends the tree depth first, tracking the address and
// size cell counts that govern each node's reg property (a node's reg is
// interpreted with its parent's cell counts).
func walk_nodes(t *fdt.Tree, n *fdt.Node, acells, scells int, f func(n *fdt.Node, acells, scells int)) {
	f(n, acells, scells)
	ca, cs := acells, scells
	// Unspecified cell counts inherit from the parent.
	if v, ok := n.Properties["#address-cells"]; ok && len(v) >= 4 {
		ca = int(t.PropUint32(v))
	}
	if v, ok := n.Properties["#size-cells"]; ok && len(v) >= 4 {
		cs = int(t.PropUint32(v))
	}
	for _, c := range n.Children {
		walk_nodes(t, c, ca, cs, f)
	}
}

// take_reg pops one (address, size) pair off a reg cell slice.
func take_reg(cells []uint32, acells, scells int) (addr, size uint64, rest []uint32) {
	if len(cells) < acells+scells {
		return 0, 0, nil
	}
	for i := 0; i < acells; i++ {
		addr = addr<<32 | uint64(cells[i])
	}
	for i := 0; i < scells; i++ {
		size = size<<32 | uint64(cells[acells+i])
	}
	return addr, size, cells[acells+scells:]
}

// index_phandles maps phandle values to their nodes, for resolving
// phy-handle references.
func index_phandles(t *fdt.Tree) map[uint32]*fdt.Node {
	m := make(map[uint32]*fdt.Node)
	walk_nodes(t, t.RootNode, 2, 1, func(n *fdt.Node, _, _ int) {
		for _, prop := range []string{"phandle", "linux,phandle"} {
			if v, ok := n.Properties[prop]; ok && len(v) >= 4 {
				m[t.PropUint32(v)] = n
			}
		}
	})
	return m
}

func find_child(n *fdt.Node, name string) *fdt.Node {
	for _, c := range n.Children {
		if node_base_name(c.Name) == name {
			return c
		}
	}
	return nil
}

// node_base_name strips the unit address: "ethernet@10090000" is
// plain "ethernet".
func node_base_name(s string) string {
	if i := strings.IndexByte(s, '@'); i >= 0 {
		return s[:i]
	}
	return s
}
