/* primascan - standalone driver for the Primax Colorado 2400u USB scanner
 *
 * Copyright (C) 2026 and up by the primascan authors
 * See LICENSE for license terms and conditions
 *
 * Common paths
 */

package main

const (
	// PathConfDir defines path to configuration directory
	PathConfDir = "/etc/primascan"

	// PathTableDir defines path to transfer table (capture) files
	PathTableDir = "/usr/share/primascan/tables"

	// PathProgState defines path to program state directory
	PathProgState = "/var/primascan"

	// PathProgStateDev defines path to directory where per-device state
	// files are saved to
	PathProgStateDev = PathProgState + "/dev"

	// PathLogDir defines path to log directory
	PathLogDir = "/var/log/primascan"

	// PathLogFile defines path to the main log file
	PathLogFile = PathLogDir + "/main.log"

	// TableFileName defines a name of the default capture table file
	TableFileName = "colorado2400u.tables"
)
