// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package macb

import (
	"fmt"
	"time"

	"github.com/jpillora/backoff"
	"github.com/platinasystems/log"
)

// Clause 22 MII register set, the part of it this driver touches.
const (
	mii_bmcr      = 0x00 // basic mode control
	mii_bmsr      = 0x01 // basic mode status
	mii_physid1   = 0x02
	mii_advertise = 0x04
	mii_lpa       = 0x05 // link partner ability
	mii_stat1000  = 0x0a // 1000BASE-T status

	bmcr_anrestart = 0x0200
	bmcr_anenable  = 0x1000

	bmsr_lstatus      = 0x0004
	bmsr_anegcomplete = 0x0020

	advertise_csma    = 0x0001
	advertise_10half  = 0x0020
	advertise_10full  = 0x0040
	advertise_100half = 0x0080
	advertise_100full = 0x0100
	advertise_all     = advertise_10half | advertise_10full | advertise_100half | advertise_100full
	advertise_full    = advertise_100full | advertise_10full
	advertise_100     = advertise_100full | advertise_100half

	lpa_1000xfull = 0x0020
	lpa_1000xhalf = 0x0040
	lpa_1000half  = 0x0400
	lpa_1000full  = 0x0800
)

// Shortened by link tests; hardware needs the full five seconds.
var autoneg_timeout = 5 * time.Second

// phy_find scans the MDIO bus for a responding PHY when the probe did
// not pin an address.  An absent PHY reads all ones.
func (d *Device) phy_find() error {
	if id := d.MdioRead(d.phy_addr, mii_physid1); id != 0xffff {
		return nil
	}
	for a := uint8(0); a < 32; a++ {
		if id := d.MdioRead(a, mii_physid1); id != 0xffff {
			d.phy_addr = a
			log.Print(d.Name, ": PHY present at ", a)
			return nil
		}
	}
	log.Print("err: ", d.Name, ": PHY not found")
	return ErrPhyNotFound
}

// phy_reset advertises our abilities and restarts autonegotiation,
// waiting for the PHY to report completion.
func (d *Device) phy_reset() error {
	d.MdioWrite(d.phy_addr, mii_advertise, advertise_csma|advertise_all)
	log.Print(d.Name, ": Starting autonegotiation...")
	bmcr := d.MdioRead(d.phy_addr, mii_bmcr)
	d.MdioWrite(d.phy_addr, mii_bmcr, bmcr|bmcr_anenable|bmcr_anrestart)

	start := time.Now()
	var status uint16
	for time.Since(start) < autoneg_timeout {
		status = d.MdioRead(d.phy_addr, mii_bmsr)
		if status&bmsr_anegcomplete != 0 {
			log.Print(d.Name, ": Autonegotiation complete")
			return nil
		}
		time.Sleep(100 * time.Microsecond)
	}
	log.Print("warning: ", d.Name,
		fmt.Sprintf(": autonegotiation timed out (status: 0x%04x)", status))
	return nil
}

// phy_init brings the link up: find the PHY (unless the link is fixed),
// negotiate, then translate the result into NCFGR speed/duplex bits and
// a TX clock rate.
func (d *Device) phy_init() error {
	if d.fixed_link != nil {
		ncfgr_v := ncfgr.get(d) &^ uint32(ncfgr_speed_100|ncfgr_full_duplex|gem_ncfgr_gigabit)
		switch d.fixed_link.SpeedMbps {
		case 1000:
			ncfgr_v |= gem_ncfgr_gigabit
		case 100:
			ncfgr_v |= ncfgr_speed_100
		}
		if d.fixed_link.FullDuplex {
			ncfgr_v |= ncfgr_full_duplex
		}
		ncfgr.set(d, ncfgr_v)
		return d.linkspd_cb(d.fixed_link.SpeedMbps)
	}

	if err := d.phy_find(); err != nil {
		return err
	}

	status := d.MdioRead(d.phy_addr, mii_bmsr)
	if status&bmsr_lstatus == 0 {
		if err := d.phy_reset(); err != nil {
			return err
		}
		// Link comes up some time after autonegotiation settles; poll
		// with growing intervals rather than hammering MDIO.
		b := &backoff.Backoff{
			Min:    100 * time.Microsecond,
			Max:    10 * time.Millisecond,
			Factor: 2,
		}
		start := time.Now()
		for time.Since(start) < autoneg_timeout {
			status = d.MdioRead(d.phy_addr, mii_bmsr)
			if status&bmsr_lstatus != 0 {
				// Wait for the link to come back before proceeding.
				time.Sleep(10 * time.Millisecond)
				break
			}
			time.Sleep(b.Duration())
		}
	}
	if status&bmsr_lstatus == 0 {
		log.Print("err: ", d.Name,
			fmt.Sprintf(": link down (status: 0x%04x)", status))
		return ErrLinkDown
	}

	if d.gem && d.phy_interface.gigabit_capable() {
		lpa := d.MdioRead(d.phy_addr, mii_stat1000)
		if lpa&(lpa_1000full|lpa_1000half|lpa_1000xfull|lpa_1000xhalf) != 0 {
			duplex := lpa&(lpa_1000full|lpa_1000xfull) != 0
			log.Print(d.Name, ": link up, 1000Mbps ", duplex_str(duplex),
				"-duplex (lpa: 0x", fmt.Sprintf("%04x", lpa), ")")
			v := ncfgr.get(d) &^ uint32(ncfgr_speed_100|ncfgr_full_duplex)
			v |= gem_ncfgr_gigabit
			if duplex {
				v |= ncfgr_full_duplex
			}
			ncfgr.set(d, v)
			return d.linkspd_cb(1000)
		}
	}

	// 10/100 resolution: intersect what we advertised with what the
	// partner offered.
	adv := d.MdioRead(d.phy_addr, mii_advertise)
	lpa := d.MdioRead(d.phy_addr, mii_lpa)
	media := adv & lpa
	speed := 0
	if media&advertise_100 != 0 {
		speed = 100
	} else if media&(advertise_10half|advertise_10full) != 0 {
		speed = 10
	}
	duplex := media&advertise_full != 0
	log.Print(d.Name, ": link up, ", speed, "Mbps ", duplex_str(duplex),
		fmt.Sprintf("-duplex (lpa: 0x%04x)", lpa))

	v := ncfgr.get(d) &^ uint32(ncfgr_speed_100|ncfgr_full_duplex|gem_ncfgr_gigabit)
	if speed == 100 {
		v |= ncfgr_speed_100
	}
	if duplex {
		v |= ncfgr_full_duplex
	}
	ncfgr.set(d, v)
	return d.linkspd_cb(speed)
}

func duplex_str(full bool) string {
	if full {
		return "full"
	}
	return "half"
}

// linkspd_cb retunes the transmit clock for the negotiated speed.
// Boards with a custom clock path hook ClkInit; the rest get the stock
// 2.5/25/125 MHz ladder through the clock provider.
func (d *Device) linkspd_cb(speedMbps int) error {
	var rate uint64
	switch speedMbps {
	case 10:
		rate = 2_500_000
	case 100:
		rate = 25_000_000
	case 1000:
		rate = 125_000_000
	default:
		return nil
	}
	if d.cfg.ClkInit != nil {
		return d.cfg.ClkInit(d, rate)
	}
	if d.clks != nil {
		return d.clks.SetRate("tx_clk", rate)
	}
	return nil
}
