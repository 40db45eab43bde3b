package domain

// TypeID identifies an item type in the catalog.
type TypeID int64

// AttrID identifies an attribute in the catalog.
type AttrID int64

// EffectID identifies an effect in the catalog.
type EffectID int64

// GroupID identifies a type group.
type GroupID int64

// CategoryID identifies a type category.
type CategoryID int64

// SelfTypeID stands in a skill requirement filter for the type of the item
// carrying the modifier. It is resolved when the affector is indexed.
const SelfTypeID TypeID = -1

// Attribute ids the engine itself refers to.
const (
	AttrMass             AttrID = 4
	AttrPowerOutput      AttrID = 11
	AttrSpeedFactor      AttrID = 20
	AttrPower            AttrID = 30
	AttrMaxVelocity      AttrID = 37
	AttrCPUOutput        AttrID = 48
	AttrCPU              AttrID = 50
	AttrRequiredSkill1   AttrID = 182
	AttrRequiredSkill2   AttrID = 183
	AttrRequiredSkill3   AttrID = 184
	AttrRequiredSkill1Lv AttrID = 277
	AttrRequiredSkill2Lv AttrID = 278
	AttrRequiredSkill3Lv AttrID = 279
	AttrSkillLevel       AttrID = 280
	AttrMaxActiveDrones  AttrID = 352
	AttrSpeedBoostFactor AttrID = 567
	AttrRequiredSkill4   AttrID = 1285
	AttrRequiredSkill4Lv AttrID = 1286
	AttrRequiredSkill5Lv AttrID = 1287
	AttrRequiredSkill6Lv AttrID = 1288
	AttrRequiredSkill5   AttrID = 1289
	AttrRequiredSkill6   AttrID = 1290
	AttrCanFitShipGroup1 AttrID = 1298
	AttrCanFitShipGroup2 AttrID = 1299
	AttrCanFitShipGroup3 AttrID = 1300
	AttrCanFitShipGroup4 AttrID = 1301
	AttrCanFitShipType1  AttrID = 1302
	AttrCanFitShipType2  AttrID = 1303
	AttrCanFitShipType3  AttrID = 1304
	AttrCanFitShipType4  AttrID = 1944
)

// RequiredSkillAttrs pairs skill type attributes with their level attributes.
var RequiredSkillAttrs = [][2]AttrID{
	{AttrRequiredSkill1, AttrRequiredSkill1Lv},
	{AttrRequiredSkill2, AttrRequiredSkill2Lv},
	{AttrRequiredSkill3, AttrRequiredSkill3Lv},
	{AttrRequiredSkill4, AttrRequiredSkill4Lv},
	{AttrRequiredSkill5, AttrRequiredSkill5Lv},
	{AttrRequiredSkill6, AttrRequiredSkill6Lv},
}

// Category ids.
const (
	CategoryShip      CategoryID = 6
	CategoryModule    CategoryID = 7
	CategoryCharge    CategoryID = 8
	CategorySkill     CategoryID = 16
	CategoryDrone     CategoryID = 18
	CategoryImplant   CategoryID = 20
	CategorySubsystem CategoryID = 32
)

// PenaltyImmune reports whether modifications from items of the category
// bypass the stacking penalty.
func PenaltyImmune(c CategoryID) bool {
	switch c {
	case CategoryShip, CategoryCharge, CategorySkill, CategoryImplant, CategorySubsystem:
		return true
	default:
		return false
	}
}
