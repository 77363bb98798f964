package catalog

import "strconv"

var statusNames = map[int]string{
	0:   "Available",
	1:   "Checked out",
	2:   "Bindery",
	3:   "Lost",
	4:   "Missing",
	5:   "In process",
	6:   "In transit",
	7:   "Reshelving",
	8:   "On holds shelf",
	9:   "On order",
	10:  "ILL",
	11:  "Cataloging",
	12:  "Reserves",
	13:  "Discard/Weed",
	14:  "Damaged",
	15:  "On reservation shelf",
	16:  "Long Overdue",
	17:  "Lost and Paid",
	18:  "Canceled Transit",
	101: "Never Returned",
	102: "Claimed Lost",
	103: "Storage",
	104: "On Display",
	105: "In Transit",
	106: "Repair",
	107: "At Children's Desk",
	108: "At Circulation Desk",
	109: "In Use for Programs",
	110: "Noncirculating",
	134: "Digitization in Process",
}

// availableStatuses are the copy statuses a patron can still obtain.
var availableStatuses = map[int]struct{}{
	0: {}, 1: {}, 5: {}, 6: {}, 7: {}, 8: {}, 9: {}, 11: {}, 15: {},
	103: {}, 104: {}, 105: {}, 107: {}, 108: {}, 109: {},
}

// IsAvailable reports whether a copy status counts as a local holding.
func IsAvailable(status int) bool {
	_, ok := availableStatuses[status]
	return ok
}

// StatusName returns the display name of a copy status code.
func StatusName(status int) string {
	if name, ok := statusNames[status]; ok {
		return name
	}
	return "Status " + strconv.Itoa(status)
}
