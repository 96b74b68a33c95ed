package constants

// Codes used across unit tests.
const TestMRIBrainGlobal = "70553"
const TestMRIUpperJointWO = "73221"
const TestMRIUpperJointW = "73222"
const TestMRIUpperJointWWO = "73223"
const TestArthrogramInjection = "23350"
const TestFluoroGuidance = "77002"
const TestSupplyCode = "A9585"

const TestProviderTaxID = "123456789"
const TestCategoryMRIWO = "MRI w/o"
