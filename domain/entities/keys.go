package entities

// EnterKey is the WebDriver code point for the Enter key
const EnterKey = "\ue007"
