// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package macb

// UsrioCfg carries whole USRIO register values per interface mode; boards
// disagree on the encoding so the config table supplies them.
type UsrioCfg struct {
	Mii   uint32
	Rmii  uint32
	Rgmii uint32
	Clken uint32
}

const caps_usrio_has_clken = 1 << 0

// Config is the per-board/per-compatible driver configuration; the device
// tree compatible string selects one from the table below.
type Config struct {
	DmaBurstLength uint32
	HwDmaCap64     bool // 64-bit descriptor addressing
	Caps           uint32

	// ClkInit overrides the default tx_clk rate programming when the
	// platform routes the link clock elsewhere (GEMGXL shim, SCMI, GCK).
	ClkInit func(d *Device, rate_hz uint64) error

	Usrio *UsrioCfg

	QueueMask               uint32
	DisableQueuesAtHalt     bool
	DisableQueuesAtInit     bool
	AllocateSegmentsEqually bool
	DisableClocksAtStop     bool

	// DMA/cache-line alignment for descriptor sharing and range
	// rounding; zero means 64.
	DmaMinAlign uint
}

var default_usrio = UsrioCfg{
	Mii:   usrio_mii,
	Rmii:  usrio_rmii,
	Rgmii: usrio_rgmii,
	Clken: usrio_clken,
}

var sama7g5_usrio = UsrioCfg{
	Mii:   0,
	Rmii:  1,
	Rgmii: 2,
	Clken: 1 << 2,
}

var default_gem_config = Config{
	DmaBurstLength: 16,
	Usrio:          &default_usrio,
}

var sama5d4_config = Config{
	DmaBurstLength: 4,
	Usrio:          &default_usrio,
}

var sifive_config = Config{
	DmaBurstLength: 16,
	ClkInit:        sifive_clk_init,
	Usrio:          &default_usrio,
}

var sama7g5_gmac_config = Config{
	DmaBurstLength: 16,
	ClkInit:        sama7g5_clk_init,
	Usrio:          &sama7g5_usrio,
}

var sama7g5_emac_config = Config{
	Caps:           caps_usrio_has_clken,
	DmaBurstLength: 16,
	Usrio:          &sama7g5_usrio,
}

var hailo15_config = Config{
	HwDmaCap64:              true,
	ClkInit:                 hailo15_clk_init,
	QueueMask:               0x3,
	DisableQueuesAtHalt:     true,
	DisableQueuesAtInit:     true,
	AllocateSegmentsEqually: true,
	DisableClocksAtStop:     true,
	Usrio:                   &default_usrio,
}

// configs maps device-tree compatible strings to board configuration.
// A nil value selects the default GEM config with probed DMA width.
var configs = map[string]*Config{
	"cdns,macb":             nil,
	"cdns,at91sam9260-macb": nil,
	"cdns,sam9x60-macb":     nil,
	"cdns,sama7g5-gem":      &sama7g5_gmac_config,
	"cdns,sama7g5-emac":     &sama7g5_emac_config,
	"atmel,sama5d2-gem":     nil,
	"atmel,sama5d3-gem":     nil,
	"atmel,sama5d4-gem":     &sama5d4_config,
	"cdns,zynq-gem":         nil,
	"sifive,fu540-c000-gem": &sifive_config,
	"hailo,hailo15-gem":     &hailo15_config,
}

// Interface is the PHY interface mode from the device tree phy-mode
// property.
type Interface int

const (
	InterfaceNone Interface = iota
	InterfaceMII
	InterfaceRMII
	InterfaceGMII
	InterfaceRGMII
	InterfaceRGMII_ID
	InterfaceRGMII_RXID
	InterfaceRGMII_TXID
	InterfaceSGMII
)

var interface_by_name = map[string]Interface{
	"mii":        InterfaceMII,
	"rmii":       InterfaceRMII,
	"gmii":       InterfaceGMII,
	"rgmii":      InterfaceRGMII,
	"rgmii-id":   InterfaceRGMII_ID,
	"rgmii-rxid": InterfaceRGMII_RXID,
	"rgmii-txid": InterfaceRGMII_TXID,
	"sgmii":      InterfaceSGMII,
}

func ParseInterface(s string) (Interface, bool) {
	i, ok := interface_by_name[s]
	return i, ok
}

func (i Interface) String() string {
	for s, x := range interface_by_name {
		if x == i {
			return s
		}
	}
	return "none"
}

func (i Interface) is_rgmii() bool {
	switch i {
	case InterfaceRGMII, InterfaceRGMII_ID, InterfaceRGMII_RXID, InterfaceRGMII_TXID:
		return true
	}
	return false
}

// gigabit_capable reports whether the interface mode can carry
// 1000BASE-T at all; 10/100-only modes skip the STAT1000 read.
func (i Interface) gigabit_capable() bool {
	return i == InterfaceGMII || i == InterfaceSGMII || i.is_rgmii()
}

// FixedLink is a DT fixed-link subnode: no MDIO, speed and duplex are
// given directly.
type FixedLink struct {
	SpeedMbps  int
	FullDuplex bool
}

// Clocks abstracts the platform clock controller; names follow the
// device-tree clock-names convention (pclk, hclk, tx_clk).
type Clocks interface {
	Enable(name string) error
	Disable(name string) error
	SetRate(name string, hz uint64) error
}

func sifive_clk_init(d *Device, rate_hz uint64) error {
	// GEMGXL TX clock mode shim: GMII when the PRCI feeds 125 MHz,
	// MII (use TX_CLK input) otherwise.
	if d.shim == nil {
		return ErrInvalidConfig
	}
	v := uint32(1)
	if rate_hz == 125e6 {
		v = 0
	}
	d.shim.W32(0, v)
	return nil
}

func sama7g5_clk_init(d *Device, rate_hz uint64) error {
	// Rate switching is in IP logic via GCK; only the enable is ours.
	if d.clks == nil {
		return nil
	}
	return d.clks.Enable("tx_clk")
}

func hailo15_clk_init(d *Device, rate_hz uint64) error {
	// TX/RX clock delay and RMII selection are owned by the platform
	// clock/SCMI agent backing the Clocks collaborator.
	if d.clks == nil {
		return nil
	}
	if err := d.clks.Enable("pclk"); err != nil {
		return err
	}
	return d.clks.Enable("hclk")
}
