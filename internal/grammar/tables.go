package grammar

// manufacturerNames expands the manufacturer codes used as prefixes on ship,
// vehicle and weapon class names. Keys are upper case.
var manufacturerNames = map[string]string{
	// ships and ground vehicles
	"AEGS": "Aegis",
	"ANVL": "Anvil",
	"AOPA": "Aopoa",
	"ARGO": "Argo",
	"BANU": "Banu",
	"CNOU": "Consolidated Outland",
	"CRUS": "Crusader",
	"DRAK": "Drake",
	"ESPR": "Esperia",
	"GAMA": "Gatac",
	"GRIN": "Greycat",
	"KRIG": "Kruger",
	"MISC": "MISC",
	"MRAI": "Mirai",
	"ORIG": "Origin",
	"RSI":  "RSI",
	"TMBL": "Tumbril",
	"VNCL": "Vanduul",
	"XIAN": "Aopoa",
	"XNAA": "Aopoa",
	// personal weapons
	"AMRS": "Amon & Reese",
	"APAR": "Apocalypse Arms",
	"BEHR": "Behring",
	"GMNI": "Gemini",
	"HRST": "Hurston Dynamics",
	"JOKR": "Joker",
	"KBAR": "KnightBridge Arms",
	"KLWE": "Klaus & Werner",
	"KSAR": "Kastak Arms",
	"LBCO": "Lightning Bolt Co",
	"MXOX": "MaxOx",
	"PRAR": "Preacher Armaments",
	"SASU": "Sakura Sun",
	"TOAG": "Torral Aggregate",
	"VOLT": "Volt",
}

// gameModes maps the logged GameModeRecord identifier to its display label.
var gameModes = map[string]string{
	"SC_Default":               "Persistent Universe",
	"SC_Frontend":              "Main Menu",
	"EA_Elimination":           "Elimination",
	"EA_TeamElimination":       "Team Elimination",
	"EA_FreeFlight":            "Free Flight",
	"EA_SquadronBattle":        "Squadron Battle",
	"EA_VehicleKillConfirmed":  "Vehicle Kill Confirmed",
	"EA_FPSKillConfirmed":      "FPS Kill Confirmed",
	"EA_FPSGunGame":            "Gun Rush",
	"EA_Duel":                  "Duel",
	"EA_ControlPoint":          "Control",
	"EA_TonkRoyale_TeamBattle": "Tonk Royale",
	"EA_Experimental":          "Experimental",
	"EA_StarFighter":           "Star Fighter",
	"EA_PirateSwarm":           "Pirate Swarm",
	"EA_VanduulSwarm":          "Vanduul Swarm",
	"EA_ClassicRace":           "Classic Race",
	"EA_GravRace":              "Grav Race",
}

// weaponTokens rewrites individual words of a weapon class name. An empty
// value drops the word.
var weaponTokens = map[string]string{
	"smg":        "SMG",
	"lmg":        "LMG",
	"hmg":        "HMG",
	"gmg":        "GMG",
	"emp":        "EMP",
	"gl":         "Grenade Launcher",
	"mg":         "Machine Gun",
	"shotgun":    "Shotgun",
	"attachment": "",
	"fps":        "",
	"item":       "",
}

// npcMarkers are lower-case substrings that identify non-player actors.
var npcMarkers = []string{
	"pu_",
	"npc",
	"_ai_",
	"vanduul",
	"pirate",
	"guard",
	"security",
	"soldier",
	"outlaw",
	"criminal",
	"kopion",
	"marok",
	"quasigrazer",
	"shipjacker",
	"civilian",
}

// aiVehicleMarkers are lower-case substrings that identify AI-crewed vehicles.
var aiVehicleMarkers = []string{
	"_ai_",
	"pu_ai",
	"_npc",
	"npc_",
	"_crim",
	"pirate",
	"vanduul",
	"_pu_",
	"aimodule",
}
