// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package macb

// Register byte offsets from the controller base.  The MACB block is the
// 10/100 subset; GEM registers exist only when the module ID says so
// (see (*Device).is_gem).
type reg uint32

func (r reg) get(d *Device) uint32    { return d.bus.R32(uint(r)) }
func (r reg) set(d *Device, v uint32) { d.bus.W32(uint(r), v) }
func (r reg) or(d *Device, v uint32)  { r.set(d, r.get(d)|v) }

const (
	ncr   reg = 0x0000 // network control
	ncfgr reg = 0x0004 // network configuration
	nsr   reg = 0x0008 // network status
	tsr   reg = 0x0014 // transmit status
	rbqp  reg = 0x0018 // rx descriptor queue base, queue 0
	tbqp  reg = 0x001c // tx descriptor queue base, queue 0
	rsr   reg = 0x0020 // receive status
	man   reg = 0x0034 // phy maintenance (mdio)
	sa1b  reg = 0x0088 // specific address 1 bottom
	sa1t  reg = 0x008c // specific address 1 top
	usrio reg = 0x00c0 // user i/o (interface mode select)
	mid   reg = 0x00fc // module id

	gem_dmacfg reg = 0x0010
	gem_dcfg1  reg = 0x0280
	gem_dcfg6  reg = 0x0294
	gem_tbqph  reg = 0x04c8 // upper 32 bits of tx queue base
	gem_rbqph  reg = 0x04d4

	// Internal packet buffer segment allocation, 4-bit log2 segment count
	// per queue: queues 0..7 in lower, 8..15 in upper.
	gem_seg_alloc_lower reg = 0x05a0
	gem_seg_alloc_upper reg = 0x05a4
)

// Per-queue descriptor base registers for queues 1..15; argument is the
// hardware queue index minus one.  The upper address words are shared
// (gem_tbqph/gem_rbqph cover every queue).
func gem_tbqp_queue(q uint) reg { return reg(0x0440 + q<<2) }
func gem_rbqp_queue(q uint) reg { return reg(0x0480 + q<<2) }

// Network control bits.
const (
	ncr_rx_enable   = 1 << 2
	ncr_tx_enable   = 1 << 3
	ncr_mdio_enable = 1 << 4 // management port enable
	ncr_clear_stats = 1 << 5
	ncr_tx_start    = 1 << 9
	ncr_tx_halt     = 1 << 10
)

// Network configuration bits.
const (
	ncfgr_speed_100     = 1 << 0
	ncfgr_full_duplex   = 1 << 1
	gem_ncfgr_gigabit   = 1 << 10
	gem_ncfgr_pcs_sel   = 1 << 11
	gem_ncfgr_sgmii_en  = 1 << 27
	ncfgr_mdc_clk_shift = 10 // MACB: 2 bit divider field
	gem_mdc_clk_shift   = 18 // GEM: 3 bit divider field
	gem_dbw_shift       = 21 // data bus width, 2 bits
)

// MDC divider codes.
const (
	macb_clk_div8 = iota
	macb_clk_div16
	macb_clk_div32
	macb_clk_div64
)

const (
	gem_clk_div8 = iota
	gem_clk_div16
	gem_clk_div32
	gem_clk_div48
	gem_clk_div64
	gem_clk_div96
	gem_clk_div128
	gem_clk_div224
)

const (
	gem_dbw32 = iota
	gem_dbw64
	gem_dbw128
)

// Network status bits.
const nsr_mdio_idle = 1 << 2

// Transmit status bits.
const tsr_tx_go = 1 << 3

// PHY maintenance frame fields.
const (
	man_sof_shift  = 30
	man_rw_shift   = 28
	man_phya_shift = 23
	man_rega_shift = 18
	man_code_shift = 16
	man_data_mask  = 0xffff

	man_sof      = 1 // clause 22 start of frame
	man_write    = 1
	man_read     = 2
	man_code_c22 = 2
)

// Module ID fields; GEM reports an ID number >= 2.
const (
	mid_idnum_shift = 16
	mid_idnum_mask  = 0xfff
)

// GEM DMA configuration fields.
const (
	gem_dmacfg_burst_mask     = 0x1f    // FBLDO: fixed burst length
	gem_dmacfg_endia_pkt      = 1 << 6  // byte swap packet data accesses
	gem_dmacfg_endia_desc     = 1 << 7  // byte swap descriptor accesses
	gem_dmacfg_rx_pbuf_mask   = 3 << 8  // RXBMS: rx packet buffer memory size
	gem_dmacfg_tx_pbuf_full   = 1 << 10 // TXPBMS: full 4KB tx packet buffer
	gem_dmacfg_rx_bufsize_sh  = 16      // RXBS: rx buffer size / 64 bytes
	gem_dmacfg_rx_bufsize_msk = 0xff << gem_dmacfg_rx_bufsize_sh
	gem_dmacfg_addr64         = 1 << 30 // enable 64-bit descriptor addressing
)

// Design configuration fields.
const (
	gem_dcfg1_dbwdef_shift = 25 // maximum supported bus width
	gem_dcfg1_dbwdef_mask  = 0x7
	gem_dcfg6_daw64        = 1 << 23 // 64-bit DMA address capable
	gem_dcfg6_queue_mask   = 0xffff  // bit per extra queue; bit 0 unused
)

// USRIO bits.  The board config tables carry whole register values, these
// are the common single-bit encodings.
const (
	usrio_mii   = 1 << 0
	usrio_rmii  = 1 << 0 // AT91 flavor shares bit 0
	usrio_rgmii = 1 << 0 // GEM flavor
	usrio_clken = 1 << 1
)

func (d *Device) is_gem() bool {
	return (mid.get(d)>>mid_idnum_shift)&mid_idnum_mask >= 0x2
}

// Bus width field of NCFGR from the maximum width the design supports.
func (d *Device) dbw() uint32 {
	switch (gem_dcfg1.get(d) >> gem_dcfg1_dbwdef_shift) & gem_dcfg1_dbwdef_mask {
	case 4:
		return gem_dbw128 << gem_dbw_shift
	case 2:
		return gem_dbw64 << gem_dbw_shift
	default:
		return gem_dbw32 << gem_dbw_shift
	}
}

func (d *Device) macb_mdc_clk_div() (v uint32) {
	switch hz := d.pclk_rate; {
	case hz < 20e6:
		v = macb_clk_div8
	case hz < 40e6:
		v = macb_clk_div16
	case hz < 80e6:
		v = macb_clk_div32
	default:
		v = macb_clk_div64
	}
	return v << ncfgr_mdc_clk_shift
}

func (d *Device) gem_mdc_clk_div() (v uint32) {
	switch hz := d.pclk_rate; {
	case hz < 20e6:
		v = gem_clk_div8
	case hz < 40e6:
		v = gem_clk_div16
	case hz < 80e6:
		v = gem_clk_div32
	case hz < 120e6:
		v = gem_clk_div48
	case hz < 160e6:
		v = gem_clk_div64
	case hz < 240e6:
		v = gem_clk_div96
	case hz < 320e6:
		v = gem_clk_div128
	default:
		v = gem_clk_div224
	}
	return v << gem_mdc_clk_shift
}
