// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package macb

import (
	"testing"

	"github.com/platinasystems/macb/hw"
)

// fake_bus is an in-memory register window.  Write hooks let a test play
// the hardware's half of a register handshake.
type fake_bus struct {
	regs     map[uint]uint32
	on_write map[uint]func(v uint32)
}

func new_fake_bus() *fake_bus {
	return &fake_bus{
		regs:     make(map[uint]uint32),
		on_write: make(map[uint]func(v uint32)),
	}
}

func (b *fake_bus) R32(o uint) uint32 { return b.regs[o] }

func (b *fake_bus) W32(o uint, v uint32) {
	b.regs[o] = v
	if f := b.on_write[o]; f != nil {
		f(v)
	}
}

type cache_op struct {
	addr uint64
	n    uint
}

// recording_cache notes every flush/invalidate so tests can assert when
// descriptor lines were written back.
type recording_cache struct {
	flushes     []cache_op
	invalidates []cache_op
}

func (c *recording_cache) Flush(addr uint64, n uint) {
	c.flushes = append(c.flushes, cache_op{addr, n})
}

func (c *recording_cache) Invalidate(addr uint64, n uint) {
	c.invalidates = append(c.invalidates, cache_op{addr, n})
}

// fake_phy answers clause 22 maintenance frames on the MDIO hook.  A
// write to BMCR with the restart bit completes autonegotiation and
// raises link immediately.
type fake_phy struct {
	addr    uint8
	regs    [32]uint16
	no_link bool
}

func (p *fake_phy) attach(b *fake_bus) {
	b.regs[uint(nsr)] = nsr_mdio_idle
	b.on_write[uint(man)] = func(v uint32) {
		phya := uint8(v>>man_phya_shift) & 0x1f
		rega := uint8(v>>man_rega_shift) & 0x1f
		switch (v >> man_rw_shift) & 3 {
		case man_read:
			data := uint16(0xffff)
			if phya == p.addr {
				data = p.regs[rega]
			}
			b.regs[uint(man)] = v&^uint32(man_data_mask) | uint32(data)
		case man_write:
			if phya != p.addr {
				return
			}
			p.regs[rega] = uint16(v)
			if rega == mii_bmcr && v&bmcr_anrestart != 0 && !p.no_link {
				p.regs[mii_bmsr] |= bmsr_anegcomplete | bmsr_lstatus
			}
		}
	}
}

type fake_clocks struct {
	enabled  []string
	disabled []string
	rates    map[string]uint64
}

func new_fake_clocks() *fake_clocks {
	return &fake_clocks{rates: make(map[string]uint64)}
}

func (c *fake_clocks) Enable(name string) error {
	c.enabled = append(c.enabled, name)
	return nil
}

func (c *fake_clocks) Disable(name string) error {
	c.disabled = append(c.disabled, name)
	return nil
}

func (c *fake_clocks) SetRate(name string, hz uint64) error {
	c.rates[name] = hz
	return nil
}

const test_dma_phys = 0x1000_0000

type test_rig struct {
	bus   *fake_bus
	cache *recording_cache
	phy   *fake_phy
	clks  *fake_clocks
	d     *Device
}

// new_gem_rig builds a GEM device over fakes: module ID says GEM, one
// PHY with link up at address 0, a megabyte of fake DMA memory.
func new_gem_rig(t *testing.T, cfg *Config, fixed *FixedLink) *test_rig {
	return new_rig(t, true, cfg, fixed)
}

// new_macb_rig is the 10/100 flavor with its 128 byte receive slots.
func new_macb_rig(t *testing.T, fixed *FixedLink) *test_rig {
	return new_rig(t, false, &Config{Usrio: &default_usrio}, fixed)
}

func new_rig(t *testing.T, gem bool, cfg *Config, fixed *FixedLink) *test_rig {
	t.Helper()
	r := &test_rig{
		bus:   new_fake_bus(),
		cache: &recording_cache{},
		phy:   &fake_phy{},
		clks:  new_fake_clocks(),
	}
	if gem {
		r.bus.regs[uint(mid)] = 0x2 << mid_idnum_shift
	} else {
		r.bus.regs[uint(mid)] = 0x1 << mid_idnum_shift
	}
	r.bus.regs[uint(gem_dcfg1)] = 2 << gem_dcfg1_dbwdef_shift
	r.phy.regs[mii_physid1] = 0x0141
	r.phy.regs[mii_bmsr] = bmsr_lstatus | bmsr_anegcomplete
	r.phy.regs[mii_advertise] = advertise_csma | advertise_all
	r.phy.regs[mii_lpa] = advertise_all
	r.phy.attach(r.bus)

	d, err := New(Params{
		Name:         "eth-test",
		Bus:          r.bus,
		Pool:         hw.DmaInit(make([]byte, 1<<20), test_dma_phys),
		Cache:        r.cache,
		Clocks:       r.clks,
		Config:       cfg,
		PclkHz:       150e6,
		PhyAddr:      0,
		PhyInterface: InterfaceRGMII,
		FixedLink:    fixed,
	})
	if err != nil {
		t.Fatal(err)
	}
	r.d = d
	return r
}

// tx_autocomplete makes the fake hardware complete any transmit as soon
// as TSTART is written, optionally with error status bits.
func (r *test_rig) tx_autocomplete(status uint32) {
	r.bus.on_write[uint(ncr)] = func(v uint32) {
		if v&ncr_tx_start == 0 {
			return
		}
		i := r.d.tx_head
		if i == 0 {
			i = tx_ring_size - 1
		} else {
			i--
		}
		r.d.tx_ring.set_ctrl(i, r.d.tx_ring.ctrl(i)|tx_ctrl_used|status)
	}
}

// fill_rx marks descriptor i as hardware-filled with the given control
// word and copies data into its buffer slot.
func (r *test_rig) fill_rx(i uint, ctrl uint32, data []byte) {
	r.d.rx_ring.set_raw_addr(i, r.d.rx_ring.addr(i)|rx_addr_used)
	r.d.rx_ring.set_ctrl(i, ctrl)
	copy(r.d.rx_buffer.Data[r.d.rx_buffer_size*i:], data)
}

func pattern(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = seed + byte(i)
	}
	return b
}
