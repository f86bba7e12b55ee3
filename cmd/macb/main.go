// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Probe a flattened device tree for Cadence MACB/GEM controllers and,
// on request, bring one up through /dev/mem and send a test frame.
//
//	macb [-v] [-le] [-up] [-mac ADDR] [-pclk HZ] [-dma PHYS,SIZE] DTB
package main

import (
	"encoding/hex"
	"fmt"
	"io/ioutil"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jpillora/backoff"
	"github.com/platinasystems/fdt"
	"github.com/platinasystems/flags"
	"github.com/platinasystems/log"
	"github.com/platinasystems/macb"
	"github.com/platinasystems/macb/hw"
	"github.com/platinasystems/parms"
)

func main() {
	if err := Main(os.Args[1:]...); err != nil {
		fmt.Fprintln(os.Stderr, "macb:", err)
		os.Exit(1)
	}
}

func Main(args ...string) error {
	flag, args := flags.New(args, "-v", "-le", "-up")
	parm, args := parms.New(args, "-mac", "-pclk", "-dma")
	if len(args) == 0 {
		return fmt.Errorf("DTB: missing")
	}

	b, err := ioutil.ReadFile(args[0])
	if err != nil {
		return err
	}
	t := &fdt.Tree{IsLittleEndian: flag.ByName["-le"]}
	if err = t.Parse(b); err != nil {
		return err
	}

	found := macb.ProbeTree(t)
	if len(found) == 0 {
		return fmt.Errorf("%s: no MACB/GEM nodes", args[0])
	}
	for _, p := range found {
		fmt.Printf("%s: %s @ 0x%x+0x%x phy %d mode %v\n",
			p.Name, p.Compatible, p.RegAddr, p.RegSize,
			p.PhyAddr, p.PhyInterface)
		if flag.ByName["-v"] {
			if p.ShimSize != 0 {
				fmt.Printf("  shim @ 0x%x+0x%x\n", p.ShimAddr, p.ShimSize)
			}
			if p.MacAddr != nil {
				fmt.Printf("  mac %s\n", hex.EncodeToString(p.MacAddr))
			}
			if p.FixedLink != nil {
				fmt.Printf("  fixed-link %dMbps full-duplex %v\n",
					p.FixedLink.SpeedMbps, p.FixedLink.FullDuplex)
			}
		}
	}

	if !flag.ByName["-up"] {
		return nil
	}
	return up(found[0], parm.ByName["-mac"], parm.ByName["-pclk"],
		parm.ByName["-dma"])
}

// up maps the first probed controller, negotiates the link and sends one
// broadcast test frame, retrying the send with backoff while the ring is
// busy.  dmaParm is the reserved-memory carveout as PHYS,SIZE in hex.
func up(p macb.Probed, macParm, pclkParm, dmaParm string) error {
	pclk := uint64(125e6)
	if len(pclkParm) > 0 {
		hz, err := strconv.ParseUint(pclkParm, 10, 64)
		if err != nil {
			return fmt.Errorf("-pclk: %w", err)
		}
		pclk = hz
	}
	dmaPhys, dmaSize := uint64(0x7800_0000), uint(1<<20)
	if len(dmaParm) > 0 {
		var err error
		if dmaPhys, dmaSize, err = parse_carveout(dmaParm); err != nil {
			return err
		}
	}

	bus, err := hw.MapMmio(uintptr(p.RegAddr), uint(p.RegSize))
	if err != nil {
		return err
	}
	var shim hw.Bus
	if p.ShimSize != 0 {
		sm, err := hw.MapMmio(uintptr(p.ShimAddr), uint(p.ShimSize))
		if err != nil {
			return err
		}
		shim = sm
	}
	pool, err := hw.MapDmaCarveout(dmaPhys, dmaSize)
	if err != nil {
		return err
	}

	d, err := macb.New(macb.Params{
		Name:         p.Name,
		Bus:          bus,
		Shim:         shim,
		Pool:         pool,
		Config:       p.Config,
		PclkHz:       pclk,
		PhyAddr:      p.PhyAddr,
		PhyInterface: p.PhyInterface,
		FixedLink:    p.FixedLink,
	})
	if err != nil {
		return err
	}

	addr := p.MacAddr
	if len(macParm) > 0 {
		if addr, err = parse_mac(macParm); err != nil {
			return err
		}
	}
	if len(addr) == 6 {
		var a [6]byte
		copy(a[:], addr)
		d.SetHardwareAddr(a)
	}

	if err = d.Init(); err != nil {
		return err
	}
	defer d.Halt()

	frame := make([]byte, 60)
	for i := 0; i < 6; i++ {
		frame[i] = 0xff
	}
	copy(frame[6:12], addr)
	frame[12] = 0x88
	frame[13] = 0xb5 // local experimental ethertype

	bo := &backoff.Backoff{
		Min:    time.Millisecond,
		Max:    100 * time.Millisecond,
		Factor: 2,
	}
	for try := 0; try < 10; try++ {
		err = d.Send(frame)
		if err != macb.ErrTxTimeout {
			break
		}
		time.Sleep(bo.Duration())
	}
	if err != nil {
		return err
	}
	log.Print(p.Name, ": test frame sent")
	return nil
}

func parse_mac(s string) ([]byte, error) {
	b, err := hex.DecodeString(strings.Replace(s, ":", "", -1))
	if err != nil || len(b) != 6 {
		return nil, fmt.Errorf("%s: invalid mac address", s)
	}
	return b, nil
}

func parse_carveout(s string) (phys uint64, size uint, err error) {
	i := strings.IndexByte(s, ',')
	if i < 0 {
		return 0, 0, fmt.Errorf("-dma %s: want PHYS,SIZE", s)
	}
	if phys, err = strconv.ParseUint(s[:i], 16, 64); err != nil {
		return 0, 0, fmt.Errorf("-dma: %w", err)
	}
	n, err := strconv.ParseUint(s[i+1:], 16, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("-dma: %w", err)
	}
	return phys, uint(n), nil
}
