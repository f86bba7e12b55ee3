// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package macb

// Clause 22 MDIO through the PHY maintenance register.  The management
// port is enabled only for the duration of the shuttle; the controller
// raises NSR idle when the frame has clocked out.

func (d *Device) MdioRead(phya, rega uint8) uint16 {
	ncr.or(d, ncr_mdio_enable)

	man.set(d, man_sof<<man_sof_shift|
		man_read<<man_rw_shift|
		uint32(phya&0x1f)<<man_phya_shift|
		uint32(rega&0x1f)<<man_rega_shift|
		man_code_c22<<man_code_shift)
	for nsr.get(d)&nsr_mdio_idle == 0 {
	}
	v := uint16(man.get(d) & man_data_mask)

	ncr.set(d, ncr.get(d)&^uint32(ncr_mdio_enable))
	return v
}

func (d *Device) MdioWrite(phya, rega uint8, value uint16) {
	ncr.or(d, ncr_mdio_enable)

	man.set(d, man_sof<<man_sof_shift|
		man_write<<man_rw_shift|
		uint32(phya&0x1f)<<man_phya_shift|
		uint32(rega&0x1f)<<man_rega_shift|
		man_code_c22<<man_code_shift|
		uint32(value))
	for nsr.get(d)&nsr_mdio_idle == 0 {
	}

	ncr.set(d, ncr.get(d)&^uint32(ncr_mdio_enable))
}
