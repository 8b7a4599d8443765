package venus

// Standard command vocabulary. Parameter defaults mirror the instrument
// method library's step defaults; Absent marks parameters the caller must
// decide on a per-step basis, if at all.

// Default channel pattern for an 8-channel pipetting head: all channels on.
const defaultChannelPattern = "11111111"

func standardTemplates() []*Template {
	return []*Template{
		{Name: "initialize", Params: []ParamSpec{
			P("initializeAlways", "0"),
		}},

		{Name: "channelTipPickUp", Params: []ParamSpec{
			P("tipSequence", ""),
			P("labwarePositions", ""),
			P("channelVariable", defaultChannelPattern),
			P("sequenceCounting", "0"),
			P("channelUse", "1"),
		}},
		{Name: "channelTipEject", Params: []ParamSpec{
			P("wasteSequence", ""),
			P("labwarePositions", ""),
			P("channelVariable", defaultChannelPattern),
			P("sequenceCounting", "0"),
			P("useDefaultWaste", "0"),
		}},
		{Name: "channelAspirate", Params: []ParamSpec{
			P("aspirateSequence", ""),
			P("labwarePositions", ""),
			P("volumes", Absent),
			P("liquidClass", Absent),
			P("channelVariable", defaultChannelPattern),
			P("sequenceCounting", "0"),
			P("capacitiveLLD", "0"),
			P("pressureLLD", "0"),
			P("liquidFollowing", "0"),
			P("submergeDepth", "2.0"),
			P("liquidHeight", "1.0"),
			P("airTransportRetractDist", "5.0"),
			P("mixCycles", "0"),
			P("mixPosition", "0.5"),
			P("mixVolume", "0"),
		}},
		{Name: "channelDispense", Params: []ParamSpec{
			P("dispenseSequence", ""),
			P("labwarePositions", ""),
			P("volumes", Absent),
			P("liquidClass", Absent),
			P("channelVariable", defaultChannelPattern),
			P("sequenceCounting", "0"),
			P("capacitiveLLD", "0"),
			P("liquidFollowing", "0"),
			P("submergeDepth", "2.0"),
			P("liquidHeight", "1.0"),
			P("airTransportRetractDist", "5.0"),
			P("mixCycles", "0"),
			P("mixPosition", "0.5"),
			P("mixVolume", "0"),
			P("dispenseMode", "8"),
		}},

		{Name: "mph96TipPickUp", Params: []ParamSpec{
			P("tipSequence", ""),
			P("sequenceCounting", "0"),
			P("reducedPatternMode", "0"),
		}},
		{Name: "mph96TipEject", Params: []ParamSpec{
			P("wasteSequence", ""),
			P("sequenceCounting", "0"),
		}},
		{Name: "mph96Aspirate", Params: []ParamSpec{
			P("aspirateSequence", ""),
			P("aspirateVolume", Absent),
			P("liquidClass", Absent),
			P("sequenceCounting", "0"),
			P("capacitiveLLD", "0"),
			P("liquidFollowing", "0"),
			P("submergeDepth", "2.0"),
			P("liquidHeight", "1.0"),
			P("airTransportRetractDist", "5.0"),
			P("mixCycles", "0"),
			P("mixPosition", "0.5"),
			P("mixVolume", "0"),
		}},
		{Name: "mph96Dispense", Params: []ParamSpec{
			P("dispenseSequence", ""),
			P("dispenseVolume", Absent),
			P("liquidClass", Absent),
			P("sequenceCounting", "0"),
			P("capacitiveLLD", "0"),
			P("liquidFollowing", "0"),
			P("submergeDepth", "2.0"),
			P("liquidHeight", "1.0"),
			P("airTransportRetractDist", "5.0"),
			P("mixCycles", "0"),
			P("mixPosition", "0.5"),
			P("mixVolume", "0"),
			P("dispenseMode", "8"),
		}},

		{Name: "gripGet", Params: []ParamSpec{
			P("plateSequence", ""),
			P("plateLabwarePosition", ""),
			P("gripForce", "3"),
			P("gripperToolChannel", "2"),
			P("transportMode", "0"),
		}},
		{Name: "gripMove", Params: []ParamSpec{
			P("plateSequence", ""),
			P("toSequence", ""),
			P("toLabwarePosition", ""),
			P("transportMode", "0"),
		}},
		{Name: "gripRelease", Params: []ParamSpec{
			P("transportMode", "0"),
		}},

		// Raw vendor firmware pass-through. The firmware command string has no
		// default; callers must always supply it.
		{Name: "firmwareCommand", Params: []ParamSpec{
			P("module", Absent),
			P("firmwareCmd", Absent),
			P("parameter", ""),
		}},
	}
}
