package types

// Vehicle is the projected, queryable state of a single vehicle, keyed by VIN.
// It is built exclusively by replaying the ledger; the field order below is
// part of the hash preimage wire contract and must not be reordered.
type Vehicle struct {
	VIN                string                    `json:"vin"`
	Features           VehicleFeatures           `json:"features"`
	Infos              VehicleInfos              `json:"infos"`
	History            []VehicleHistoryItem      `json:"history"`
	TechnicalControls  []VehicleTechnicalControl `json:"technicalControls"`
	SinisterInfos      VehicleSinisterInfos      `json:"sinisterInfos"`
	AttachedClientsIds []string                  `json:"attachedClientsIds"`
	UserID             string                    `json:"userId,omitempty"`
}

// VehicleFeatures mirrors the French vehicle registration card (carte grise)
// technical fields.
type VehicleFeatures struct {
	Brand                     string `json:"brand"`
	Model                     string `json:"model"`
	CvPower                   int    `json:"cvPower"`
	Color                     string `json:"color"`
	TVV                       string `json:"tvv"`
	CnitNumber                string `json:"cnitNumber"`
	ReceptionType             string `json:"receptionType"`
	TechnicallyAdmissiblePTAC int    `json:"technicallyAdmissiblePTAC"`
	Ptac                      int    `json:"ptac"`
	Ptra                      int    `json:"ptra"`
	PtService                 int    `json:"ptService"`
	Ptav                      int    `json:"ptav"`
	Category                  string `json:"category"`
	Gender                    string `json:"gender"`
	CeBody                    string `json:"ceBody"`
	NationalBody              string `json:"nationalBody"`
	ReceptionNumber           string `json:"receptionNumber"`
	Displacement              int    `json:"displacement"`
	NetPower                  int    `json:"netPower"`
	Energy                    string `json:"energy"`
	SeatingNumber             int    `json:"seatingNumber"`
	StandingPlacesNumber      int    `json:"standingPlacesNumber"`
	SonorousPowerLevel        string `json:"sonorousPowerLevel"`
	EngineSpeed               int    `json:"engineSpeed"`
	Co2Emission               int    `json:"co2Emission"`
	PollutionCode             string `json:"pollutionCode"`
	PowerMassRatio            string `json:"powerMassRatio"`
}

// VehicleInfos holds the administrative registration data.
type VehicleInfos struct {
	HolderCount                   int    `json:"holderCount"`
	FirstRegistrationInFranceDate string `json:"firstRegistrationInFranceDate"`
	FirstSivRegistrationDate      string `json:"firstSivRegistrationDate"`
	LicensePlate                  string `json:"licensePlate"`
	SivConversionDate             string `json:"sivConversionDate"`
}

// VehicleHistoryItem is a single ownership or administrative event.
type VehicleHistoryItem struct {
	Date string `json:"date"`
	Type string `json:"type"`
}

// VehicleTechnicalControl is one periodic technical inspection record.
type VehicleTechnicalControl struct {
	Date      string `json:"date"`
	Result    string `json:"result"`
	ResultRaw string `json:"resultRaw"`
	Nature    string `json:"nature"`
	Km        int    `json:"km"`
	FileURL   string `json:"fileUrl"`
}

// VehicleSinisterInfos summarizes declared accidents.
type VehicleSinisterInfos struct {
	Count              int    `json:"count"`
	LastResolutionDate string `json:"lastResolutionDate"`
	LastSinisterDate   string `json:"lastSinisterDate"`
}

// VehicleChanges carries the sections modified by an update transaction.
// A nil section is left untouched; a non-nil section replaces the stored one
// entirely (lists included).
type VehicleChanges struct {
	Features           *VehicleFeatures          `json:"features,omitempty"`
	Infos              *VehicleInfos             `json:"infos,omitempty"`
	History            []VehicleHistoryItem      `json:"history,omitempty"`
	TechnicalControls  []VehicleTechnicalControl `json:"technicalControls,omitempty"`
	SinisterInfos      *VehicleSinisterInfos     `json:"sinisterInfos,omitempty"`
	AttachedClientsIds []string                  `json:"attachedClientsIds,omitempty"`
}
