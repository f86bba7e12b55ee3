// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package macb drives the Cadence MACB/GEM Ethernet controller found on
// AT91, Zynq, SiFive and Hailo parts, in the polled style a boot loader
// wants: no interrupts, bounded busy-waits, one frame in flight.
package macb

import (
	"errors"
	"math/bits"
	"unsafe"

	"github.com/platinasystems/macb/hw"
)

const (
	macb_rx_buffer_size = 128
	gem_rx_buffer_size  = 2048
	rx_buffer_multiple  = 64

	rx_ring_size = 32
	tx_ring_size = 16

	// TX completion poll budget: iterations x 1us.
	tx_timeout_us = 1000

	// Largest frame we hand upward; also the size of the scratch
	// buffer used to join a frame split by ring wraparound.
	max_frame_bytes = 1536

	max_queues = 16
)

var (
	ErrNoPacket      = errors.New("no packet available")
	ErrTxTimeout     = errors.New("tx timeout")
	ErrLinkDown      = errors.New("link down")
	ErrPhyNotFound   = errors.New("phy not found")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Device is one MACB/GEM instance.  All state lives here; operations are
// synchronous and must not be called concurrently (the only other agent
// touching the rings is the controller's DMA engine).
type Device struct {
	Name string

	bus   hw.Bus
	shim  hw.Bus // optional second register window (sifive gemgxl)
	pool  hw.Pool
	cache hw.Cache
	clks  Clocks
	cfg   *Config

	gem           bool
	big_endian    bool
	phy_interface Interface
	phy_addr      uint8
	pclk_rate     uint64
	fixed_link    *FixedLink

	rx_buffer_size uint
	rx_buffer      hw.DmaBuf
	rx_ring        desc_ring
	tx_ring        desc_ring
	dummy_desc     desc_ring
	tx_bounce      hw.DmaBuf
	rx_scratch     []byte

	// Ring cursors.  rx_tail is the reclaim point; next_rx_tail scans
	// ahead of it while a multi-descriptor frame assembles; wrapped
	// notes that the frame's buffers passed the end of the pool.
	rx_tail      uint
	next_rx_tail uint
	wrapped      bool
	tx_head      uint
	tx_mapped    bool
}

// Params collects the collaborators a Device needs at probe time.
type Params struct {
	Name         string
	Bus          hw.Bus
	Shim         hw.Bus
	Pool         hw.Pool
	Cache        hw.Cache
	Clocks       Clocks
	Config       *Config // nil: default GEM config, DMA width probed
	PclkHz       uint64
	PhyAddr      int // -1 to search the MDIO bus
	PhyInterface Interface
	FixedLink    *FixedLink
}

// New allocates rings and buffer pools and does just enough register
// setup (MDC divider, bus width) to talk to the PHY.  The controller is
// left halted; call Init to bring the link up.
func New(p Params) (*Device, error) {
	if p.Bus == nil || p.Pool == nil {
		return nil, ErrInvalidConfig
	}
	d := &Device{
		Name:          p.Name,
		bus:           p.Bus,
		shim:          p.Shim,
		pool:          p.Pool,
		cache:         p.Cache,
		clks:          p.Clocks,
		cfg:           p.Config,
		pclk_rate:     p.PclkHz,
		phy_interface: p.PhyInterface,
		fixed_link:    p.FixedLink,
	}
	if d.cache == nil {
		d.cache = hw.Coherent{}
	}
	if p.PhyAddr >= 0 {
		d.phy_addr = uint8(p.PhyAddr)
	}
	d.gem = d.is_gem()
	d.big_endian = cpu_is_big_endian()

	if d.cfg == nil {
		c := default_gem_config
		if gem_dcfg6.get(d)&gem_dcfg6_daw64 != 0 {
			c.HwDmaCap64 = true
		}
		d.cfg = &c
	}
	if d.cfg.DmaMinAlign == 0 {
		cc := *d.cfg
		cc.DmaMinAlign = 64
		d.cfg = &cc
	}

	if d.gem {
		d.rx_buffer_size = gem_rx_buffer_size
	} else {
		d.rx_buffer_size = macb_rx_buffer_size
	}

	log2Align := uint(bits.TrailingZeros(d.cfg.DmaMinAlign))
	var err error
	var b hw.DmaBuf
	if d.rx_buffer, err = d.pool.AllocAligned(d.rx_buffer_size*rx_ring_size, log2Align); err != nil {
		return nil, err
	}
	if b, err = d.pool.AllocAligned(rx_ring_size*dma_desc_size, log2Align); err != nil {
		return nil, err
	}
	d.rx_ring = new_desc_ring(b, rx_ring_size, d.cfg.HwDmaCap64)
	if b, err = d.pool.AllocAligned(tx_ring_size*dma_desc_size, log2Align); err != nil {
		return nil, err
	}
	d.tx_ring = new_desc_ring(b, tx_ring_size, d.cfg.HwDmaCap64)
	if b, err = d.pool.AllocAligned(dma_desc_size, log2Align); err != nil {
		return nil, err
	}
	d.dummy_desc = new_desc_ring(b, 1, d.cfg.HwDmaCap64)
	if d.tx_bounce, err = d.pool.AllocAligned(max_frame_bytes, log2Align); err != nil {
		return nil, err
	}
	d.rx_scratch = make([]byte, max_frame_bytes)

	// Enough NCFGR to drive the management port.
	v := d.macb_mdc_clk_div()
	if d.gem {
		v = d.gem_mdc_clk_div() | d.dbw()
	}
	ncfgr.set(d, v)

	return d, nil
}

// Init resets ring state, programs DMA and interface mode, negotiates the
// link and enables TX/RX.  Halt must have run first (or the controller
// must be out of reset and idle).
func (d *Device) Init() error {
	if d.cfg.DisableClocksAtStop && d.clks != nil {
		if err := d.clks.Enable("pclk"); err != nil {
			return err
		}
		if err := d.clks.Enable("hclk"); err != nil {
			return err
		}
	}

	// Every RX slot owned by hardware, wrap marker on the last.
	paddr := d.rx_buffer.PhysAddress
	for i := uint(0); i < rx_ring_size; i++ {
		a := paddr
		if i == rx_ring_size-1 {
			a |= rx_addr_wrap
		}
		d.rx_ring.set_ctrl(i, 0)
		d.rx_ring.set_addr(i, a)
		paddr += uint64(d.rx_buffer_size)
	}
	d.flush_ring(&d.rx_ring)
	d.flush_rx_buffer()

	// Every TX slot owned by software until Send hands one over.
	for i := uint(0); i < tx_ring_size; i++ {
		d.tx_ring.set_addr(i, 0)
		v := uint32(tx_ctrl_used)
		if i == tx_ring_size-1 {
			v |= tx_ctrl_wrap
		}
		d.tx_ring.set_ctrl(i, v)
	}
	d.flush_ring(&d.tx_ring)

	d.rx_tail = 0
	d.next_rx_tail = 0
	d.wrapped = false
	d.tx_head = 0

	rbqp.set(d, uint32(d.rx_ring.phys))
	tbqp.set(d, uint32(d.tx_ring.phys))
	if d.cfg.HwDmaCap64 {
		gem_rbqph.set(d, uint32(d.rx_ring.phys>>32))
		gem_tbqph.set(d, uint32(d.tx_ring.phys>>32))
	}

	if d.gem {
		d.configure_dma()
		d.init_multi_queues()

		var v uint32
		switch {
		case d.phy_interface.is_rgmii():
			v = d.cfg.Usrio.Rgmii
		case d.phy_interface == InterfaceRMII:
			v = d.cfg.Usrio.Rmii
		case d.phy_interface == InterfaceMII:
			v = d.cfg.Usrio.Mii
		}
		if d.cfg.Caps&caps_usrio_has_clken != 0 {
			v |= d.cfg.Usrio.Clken
		}
		usrio.set(d, v)

		if d.phy_interface == InterfaceSGMII {
			ncfgr.or(d, gem_ncfgr_sgmii_en|gem_ncfgr_pcs_sel)
		}
	} else {
		if d.phy_interface == InterfaceRMII {
			usrio.set(d, 0)
		} else {
			usrio.set(d, d.cfg.Usrio.Mii)
		}
	}

	if err := d.phy_init(); err != nil {
		return err
	}

	ncr.set(d, ncr_tx_enable|ncr_rx_enable)
	return nil
}

// Halt stops the controller, draining any transmission in flight, and
// clears statistics.  Ring memory keeps its allocation; Init rebuilds
// the state.
func (d *Device) Halt() {
	ncr.or(d, ncr_tx_halt)
	for tsr.get(d)&tsr_tx_go != 0 {
	}

	ncr.set(d, ncr_clear_stats)

	if d.cfg.DisableQueuesAtHalt {
		// Odd base addresses stop descriptor fetch.
		rbqp.set(d, 1)
		tbqp.set(d, 1)
		for i := uint(1); i < max_queues; i++ {
			gem_tbqp_queue(i-1).set(d, 1)
			gem_rbqp_queue(i-1).set(d, 1)
		}
	}

	if d.cfg.DisableClocksAtStop && d.clks != nil {
		d.clks.Disable("pclk")
		d.clks.Disable("hclk")
	}
}

// SetHardwareAddr programs specific address register 1, the one frame
// filtering uses.
func (d *Device) SetHardwareAddr(addr [6]byte) {
	sa1b.set(d, uint32(addr[0])|uint32(addr[1])<<8|
		uint32(addr[2])<<16|uint32(addr[3])<<24)
	sa1t.set(d, uint32(addr[4])|uint32(addr[5])<<8)
}

func cpu_is_big_endian() bool {
	x := uint32(0x12345678)
	return *(*byte)(unsafe.Pointer(&x)) == 0x12
}
